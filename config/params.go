package config

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"time"

	"belongchain/native/checkin"
	"belongchain/native/dexswap"
)

// EngineParams converts the raw configuration into validated engine
// parameters.
func (c *Config) EngineParams() (checkin.Params, error) {
	var params checkin.Params
	if len(c.Tiers) != checkin.TierCount {
		return params, fmt.Errorf("config: tiers: expected %d rows, got %d", checkin.TierCount, len(c.Tiers))
	}

	params.Fees = checkin.Fees{
		ReferralCreditsAmount:          c.Fees.ReferralCreditsAmount,
		AffiliatePercentage:            c.Fees.AffiliateBPS,
		LongCustomerDiscountPercentage: c.Fees.LongCustomerDiscountBPS,
		PlatformSubsidyPercentage:      c.Fees.PlatformSubsidyBPS,
		ProcessingFeePercentage:        c.Fees.ProcessingFeeBPS,
		BuybackBurnPercentage:          c.Fees.BuybackBurnBPS,
	}

	payments, err := c.Payments.toDexswap()
	if err != nil {
		return params, err
	}
	params.Payments = payments

	for i, tier := range c.Tiers {
		if strings.TrimSpace(tier.Threshold) != "" {
			threshold, err := parseAmount(fmt.Sprintf("tiers[%d].Threshold", i), tier.Threshold)
			if err != nil {
				return params, err
			}
			params.TierThresholds[i] = threshold
		}
		convenience := big.NewInt(0)
		if strings.TrimSpace(tier.ConvenienceFeeAmount) != "" {
			if convenience, err = parseAmount(fmt.Sprintf("tiers[%d].ConvenienceFeeAmount", i), tier.ConvenienceFeeAmount); err != nil {
				return params, err
			}
		}
		params.Rewards[i] = checkin.RewardsInfo{
			VenueStakingInfo: checkin.VenueStakingInfo{
				DepositFeePercentage: tier.DepositFeeBPS,
				ConvenienceFeeAmount: convenience,
			},
			PromoterStakingInfo: checkin.PromoterStakingInfo{
				USDTokenPercentage: tier.PromoterUSDCutBPS,
				LongPercentage:     tier.PromoterLongCutBPS,
			},
		}
	}

	if params.Treasury, err = DecodeAddress("Treasury", c.Treasury); err != nil {
		return params, err
	}
	if params.BurnAddress, err = DecodeAddress("BurnAddress", c.BurnAddress); err != nil {
		return params, err
	}

	if err := checkin.ValidateParams(params); err != nil {
		return params, fmt.Errorf("config: %w", err)
	}
	return params, nil
}

func (p Payments) toDexswap() (dexswap.PaymentsInfo, error) {
	var out dexswap.PaymentsInfo
	switch strings.ToLower(strings.TrimSpace(p.DexType)) {
	case "", "classic":
		out.DexType = dexswap.DexClassic
	case "hooked":
		out.DexType = dexswap.DexHooked
	default:
		return out, fmt.Errorf("config: payments.DexType: unknown value %q", p.DexType)
	}

	slippage, err := parseAmount("payments.SlippageNumerator", p.SlippageNumerator)
	if err != nil {
		return out, err
	}
	out.SlippageBps = slippage

	if out.Router, err = DecodeAddress("payments.Router", p.Router); err != nil {
		return out, err
	}
	if out.USDToken.Address, err = DecodeAddress("payments.USDTokenAddress", p.USDTokenAddress); err != nil {
		return out, err
	}
	out.USDToken.Decimals = p.USDTokenDecimals
	if out.Long.Address, err = DecodeAddress("payments.LongTokenAddress", p.LongTokenAddress); err != nil {
		return out, err
	}
	out.Long.Decimals = p.LongTokenDecimals
	out.MaxPriceFeedDelay = time.Duration(p.MaxPriceFeedDelaySecs) * time.Second

	if out.PoolKey, err = parseHex("payments.PoolKeyHex", p.PoolKeyHex); err != nil {
		return out, err
	}
	if out.HookData, err = parseHex("payments.HookDataHex", p.HookDataHex); err != nil {
		return out, err
	}
	return out, nil
}

func parseAmount(field, value string) (*big.Int, error) {
	out, ok := new(big.Int).SetString(strings.TrimSpace(value), 10)
	if !ok || out.Sign() < 0 {
		return nil, fmt.Errorf("config: %s: invalid amount %q", field, value)
	}
	return out, nil
}

func parseHex(field, value string) ([]byte, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(value), "0x")
	if trimmed == "" {
		return nil, nil
	}
	out, err := hex.DecodeString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", field, err)
	}
	return out, nil
}
