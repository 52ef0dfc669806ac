// Package wallet knows which external wallet apps can pay a session and how
// to build the deep link that opens each of them.
package wallet

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"text/template"

	"freetime_shop/internal/apperr"
	"freetime_shop/internal/models"

	"gopkg.in/yaml.v3"
)

//go:embed wallets.yaml
var defaultConfig []byte

// Coins a deep link can be denominated in.
var knownCoins = map[string]bool{"BTC": true, "ETH": true, "BNB": true, "SOL": true, "USDT": true}

type walletEntry struct {
	Name     string   `yaml:"name"`
	Package  string   `yaml:"package"`
	Coins    []string `yaml:"coins"`
	IconURL  string   `yaml:"icon_url"`
	Template string   `yaml:"template"`
}

type config struct {
	MerchantAddress string        `yaml:"merchant_address"`
	DefaultTemplate string        `yaml:"default_template"`
	Wallets         []walletEntry `yaml:"wallets"`
}

type wallet struct {
	app  models.WalletApp
	tmpl *template.Template
}

// LinkData is what deep-link templates can reference.
type LinkData struct {
	Address   string
	Amount    string
	Currency  string
	Coin      string
	PaymentID string
	Merchant  string
}

type Directory struct {
	address  string
	wallets  []wallet
	byPkg    map[string]int
	fallback *template.Template
	registry Registry
}

func Default(registry Registry) (*Directory, error) {
	return Parse(defaultConfig, registry)
}

// Load reads a wallet file; an empty path means the embedded configuration.
func Load(path string, registry Registry) (*Directory, error) {
	if path == "" {
		return Default(registry)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read wallets %s: %w", path, err)
	}
	return Parse(data, registry)
}

func Parse(data []byte, registry Registry) (*Directory, error) {
	var cfg config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse wallets: %w", err)
	}
	if cfg.DefaultTemplate == "" {
		return nil, fmt.Errorf("parse wallets: default_template is required")
	}
	fallback, err := template.New("default").Option("missingkey=error").Parse(cfg.DefaultTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse wallets: default_template: %w", err)
	}
	if registry == nil {
		registry = StaticRegistry{}
	}

	d := &Directory{
		address:  cfg.MerchantAddress,
		byPkg:    make(map[string]int, len(cfg.Wallets)),
		fallback: fallback,
		registry: registry,
	}
	for _, w := range cfg.Wallets {
		if w.Package == "" {
			return nil, fmt.Errorf("parse wallets: %q has no package", w.Name)
		}
		if _, dup := d.byPkg[w.Package]; dup {
			return nil, fmt.Errorf("parse wallets: duplicate package %q", w.Package)
		}
		var tmpl *template.Template
		if w.Template != "" {
			tmpl, err = template.New(w.Package).Option("missingkey=error").Parse(w.Template)
			if err != nil {
				return nil, fmt.Errorf("parse wallets: %s template: %w", w.Package, err)
			}
		}
		app := models.WalletApp{
			Name:           w.Name,
			PackageName:    w.Package,
			SupportedCoins: append([]string(nil), w.Coins...),
		}
		if w.IconURL != "" {
			icon := w.IconURL
			app.IconURL = &icon
		}
		d.byPkg[w.Package] = len(d.wallets)
		d.wallets = append(d.wallets, wallet{app: app, tmpl: tmpl})
	}
	return d, nil
}

// Apps lists the configured wallets, with IsInstalled answered by the
// registry. A registry failure fails the whole listing.
func (d *Directory) Apps(ctx context.Context) ([]models.WalletApp, error) {
	out := make([]models.WalletApp, 0, len(d.wallets))
	for _, w := range d.wallets {
		app := w.app
		app.SupportedCoins = append([]string(nil), w.app.SupportedCoins...)
		installed, err := d.registry.IsInstalled(ctx, app.PackageName)
		if err != nil {
			return nil, apperr.External("wallet.Apps", err)
		}
		app.IsInstalled = installed
		out = append(out, app)
	}
	return out, nil
}

// App returns the wallet configured for pkg, or a bare entry for an unknown
// package so that the default template still applies.
func (d *Directory) App(pkg string) (models.WalletApp, bool) {
	i, ok := d.byPkg[pkg]
	if !ok {
		return models.WalletApp{Name: pkg, PackageName: pkg}, false
	}
	return d.wallets[i].app, true
}

// DeepLink renders the URI that opens app to pay session.
func (d *Directory) DeepLink(app models.WalletApp, session models.PaymentSession) (string, error) {
	coin := strings.ToUpper(session.Currency)
	data := LinkData{
		Address:   d.address,
		Amount:    session.Amount.String(),
		Currency:  coin,
		Coin:      coin,
		PaymentID: session.PaymentID,
		Merchant:  session.MerchantID,
	}

	tmpl := d.fallback
	if i, ok := d.byPkg[app.PackageName]; ok && d.wallets[i].tmpl != nil {
		tmpl = d.wallets[i].tmpl
	} else if !knownCoins[coin] {
		return "", apperr.Validation("wallet.DeepLink", "currency %s cannot be paid from a wallet", session.Currency)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("wallet.DeepLink: render %s: %w", app.PackageName, err)
	}
	return buf.String(), nil
}
