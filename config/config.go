package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"belongchain/crypto"
)

// Config is the node configuration loaded from TOML. Addresses are bech32
// encoded with the blg prefix; basis-point fields use the 10 000 denominator.
type Config struct {
	RPCAddress           string `toml:"RPCAddress"`
	MetricsAddress       string `toml:"MetricsAddress"`
	DataDir              string `toml:"DataDir"`
	NetworkName          string `toml:"NetworkName"`
	ChainID              uint64 `toml:"ChainID"`
	OperatorKeystorePath string `toml:"OperatorKeystorePath"`
	LogFile              string `toml:"LogFile"`
	LogEnvironment       string `toml:"LogEnvironment"`

	Owner       string `toml:"Owner"`
	Manager     string `toml:"Manager"`
	Treasury    string `toml:"Treasury"`
	BurnAddress string `toml:"BurnAddress"`
	Vault       string `toml:"Vault"`

	Fees     Fees         `toml:"fees"`
	Payments Payments     `toml:"payments"`
	Tiers    []TierConfig `toml:"tiers"`
}

// Fees mirrors the engine fee parameters.
type Fees struct {
	ReferralCreditsAmount   uint64 `toml:"ReferralCreditsAmount"`
	AffiliateBPS            uint32 `toml:"AffiliateBPS"`
	LongCustomerDiscountBPS uint32 `toml:"LongCustomerDiscountBPS"`
	PlatformSubsidyBPS      uint32 `toml:"PlatformSubsidyBPS"`
	ProcessingFeeBPS        uint32 `toml:"ProcessingFeeBPS"`
	BuybackBurnBPS          uint32 `toml:"BuybackBurnBPS"`
}

// Payments mirrors the swap routing parameters. SlippageNumerator is a
// decimal string in parts per 1e27.
type Payments struct {
	DexType               string `toml:"DexType"`
	SlippageNumerator     string `toml:"SlippageNumerator"`
	Router                string `toml:"Router"`
	USDTokenAddress       string `toml:"USDTokenAddress"`
	USDTokenDecimals      uint8  `toml:"USDTokenDecimals"`
	LongTokenAddress      string `toml:"LongTokenAddress"`
	LongTokenDecimals     uint8  `toml:"LongTokenDecimals"`
	PriceFeedDecimals     uint8  `toml:"PriceFeedDecimals"`
	InitialPriceAnswer    string `toml:"InitialPriceAnswer"`
	MaxPriceFeedDelaySecs uint64 `toml:"MaxPriceFeedDelaySecs"`
	PoolKeyHex            string `toml:"PoolKeyHex"`
	HookDataHex           string `toml:"HookDataHex"`
}

// TierConfig is one row of the staking tier table. Threshold is a decimal
// string; the first row (tier none) leaves it empty.
type TierConfig struct {
	Threshold            string `toml:"Threshold"`
	DepositFeeBPS        uint32 `toml:"DepositFeeBPS"`
	ConvenienceFeeAmount string `toml:"ConvenienceFeeAmount"`
	PromoterUSDCutBPS    uint32 `toml:"PromoterUSDCutBPS"`
	PromoterLongCutBPS   uint32 `toml:"PromoterLongCutBPS"`
}

// Load loads the configuration from the given path, creating a default file
// and operator keystore on first run.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if cfg.OperatorKeystorePath == "" {
		if err := ensureKeystore(path, cfg); err != nil {
			return nil, err
		}
	}
	if strings.TrimSpace(cfg.NetworkName) == "" {
		cfg.NetworkName = "belong-local"
	}
	if cfg.ChainID == 0 {
		cfg.ChainID = 1337
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func ensureKeystore(configPath string, cfg *Config) error {
	keystorePath := defaultKeystorePath(configPath)
	if _, err := os.Stat(keystorePath); os.IsNotExist(err) {
		key, genErr := crypto.GeneratePrivateKey()
		if genErr != nil {
			return genErr
		}
		if err := crypto.SaveToKeystore(keystorePath, key, ""); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}
	cfg.OperatorKeystorePath = keystorePath
	return persist(configPath, cfg)
}

// createDefault creates and saves a default configuration file together with
// a fresh operator keystore.
func createDefault(path string) (*Config, error) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	keystorePath := defaultKeystorePath(path)
	if err := crypto.SaveToKeystore(keystorePath, key, ""); err != nil {
		return nil, err
	}

	operator := key.PubKey().Address().String()
	cfg := &Config{
		RPCAddress:           ":8080",
		MetricsAddress:       ":9090",
		DataDir:              "./belong-data",
		NetworkName:          "belong-local",
		ChainID:              1337,
		OperatorKeystorePath: keystorePath,
		LogEnvironment:       "local",
		Owner:                operator,
		Manager:              operator,
		Treasury:             operator,
		BurnAddress:          operator,
		Vault:                operator,
		Fees: Fees{
			ReferralCreditsAmount:   1,
			AffiliateBPS:            500,
			LongCustomerDiscountBPS: 1000,
			PlatformSubsidyBPS:      500,
			ProcessingFeeBPS:        1000,
			BuybackBurnBPS:          5000,
		},
		Payments: Payments{
			DexType:               "classic",
			SlippageNumerator:     "10000000000000000000000000", // 1%
			Router:                operator,
			USDTokenAddress:       operator,
			USDTokenDecimals:      18,
			LongTokenAddress:      operator,
			LongTokenDecimals:     18,
			PriceFeedDecimals:     8,
			InitialPriceAnswer:    "25000000", // 0.25 USD per LONG
			MaxPriceFeedDelaySecs: 3600,
		},
		Tiers: defaultTiers(),
	}
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultTiers() []TierConfig {
	return []TierConfig{
		{DepositFeeBPS: 1000, ConvenienceFeeAmount: "5", PromoterUSDCutBPS: 1000, PromoterLongCutBPS: 500},
		{Threshold: "100000", DepositFeeBPS: 800, ConvenienceFeeAmount: "4", PromoterUSDCutBPS: 800, PromoterLongCutBPS: 400},
		{Threshold: "250000", DepositFeeBPS: 600, ConvenienceFeeAmount: "3", PromoterUSDCutBPS: 600, PromoterLongCutBPS: 300},
		{Threshold: "500000", DepositFeeBPS: 400, ConvenienceFeeAmount: "2", PromoterUSDCutBPS: 400, PromoterLongCutBPS: 200},
		{Threshold: "1000000", DepositFeeBPS: 200, ConvenienceFeeAmount: "1", PromoterUSDCutBPS: 200, PromoterLongCutBPS: 100},
	}
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}

func defaultKeystorePath(configPath string) string {
	dir := filepath.Dir(configPath)
	if dir == "." {
		dir = ""
	}
	return filepath.Join(dir, "operator.keystore")
}

// DecodeAddress parses a configured bech32 address into raw bytes.
func DecodeAddress(field, value string) ([20]byte, error) {
	var out [20]byte
	addr, err := crypto.DecodeAddress(strings.TrimSpace(value))
	if err != nil {
		return out, fmt.Errorf("config: %s: %w", field, err)
	}
	copy(out[:], addr.Bytes())
	return out, nil
}
