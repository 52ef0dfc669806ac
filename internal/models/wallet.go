package models

type WalletApp struct {
	Name           string   `json:"name"`
	PackageName    string   `json:"package_name"`
	SupportedCoins []string `json:"supported_coins"`
	IconURL        *string  `json:"icon_url,omitempty"`
	IsInstalled    bool     `json:"is_installed"`
}

// PaymentWithWallets bundles a fresh session with the wallets able to pay it.
type PaymentWithWallets struct {
	Session          PaymentSession `json:"payment_session"`
	AvailableWallets []WalletApp    `json:"available_wallets"`
	SelectedWallet   *WalletApp     `json:"selected_wallet,omitempty"`
	DeepLink         *string        `json:"deep_link,omitempty"`
}
