package config

import (
	"strings"
	"sync/atomic"

	"github.com/spf13/viper"
)

// TerminalConfig carries the receipt and paper settings a terminal renders
// with. It is read from an optional terminal.yml so operators can adjust it
// without rebuilding.
type TerminalConfig struct {
	PaperWidth    int      `mapstructure:"paperWidth"`
	ReceiptHeader []string `mapstructure:"receiptHeader"`
	ReceiptFooter []string `mapstructure:"receiptFooter"`
}

func DefaultTerminalConfig() TerminalConfig {
	return TerminalConfig{
		PaperWidth:    42,
		ReceiptHeader: nil,
		ReceiptFooter: []string{"Thank you!"},
	}
}

// TerminalConfigHolder exposes the current terminal config.
type TerminalConfigHolder struct {
	current atomic.Value // holds TerminalConfig
}

func NewTerminalConfigHolder() (*TerminalConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("terminal")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/tably")
	v.AddConfigPath(".")

	v.SetEnvPrefix("TABLY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := DefaultTerminalConfig()
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	} else {
		if err := v.UnmarshalKey("terminal", &cfg); err != nil {
			return nil, err
		}
		if cfg.PaperWidth <= 0 {
			cfg.PaperWidth = DefaultTerminalConfig().PaperWidth
		}
	}

	holder := &TerminalConfigHolder{}
	holder.current.Store(cfg)
	return holder, nil
}

func (h *TerminalConfigHolder) Current() TerminalConfig {
	if v, ok := h.current.Load().(TerminalConfig); ok {
		return v
	}
	return DefaultTerminalConfig()
}
