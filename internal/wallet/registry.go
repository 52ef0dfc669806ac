package wallet

import (
	"context"
	"strings"
)

// Registry answers whether an app is installed on the customer's device.
type Registry interface {
	IsInstalled(ctx context.Context, pkg string) (bool, error)
}

// StaticRegistry treats a fixed set of packages as installed.
type StaticRegistry map[string]bool

// ParseInstalled builds a StaticRegistry from a comma separated list.
func ParseInstalled(list string) StaticRegistry {
	r := StaticRegistry{}
	for _, pkg := range strings.Split(list, ",") {
		if pkg = strings.TrimSpace(pkg); pkg != "" {
			r[pkg] = true
		}
	}
	return r
}

func (r StaticRegistry) IsInstalled(_ context.Context, pkg string) (bool, error) {
	return r[pkg], nil
}

// RegistryFunc adapts a function to Registry.
type RegistryFunc func(ctx context.Context, pkg string) (bool, error)

func (f RegistryFunc) IsInstalled(ctx context.Context, pkg string) (bool, error) {
	return f(ctx, pkg)
}
