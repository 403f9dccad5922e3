package state

import "encoding/hex"

var (
	checkinVenuePrefix    = []byte("checkin/venue/")
	checkinReferralPrefix = []byte("checkin/referral/")
	escrowVenuePrefix     = []byte("escrow/venue/")
	sigNoncePrefix        = []byte("sigauth/nonce/")
	accountPrefix         = []byte("account/")
	creditPrefix          = []byte("credit/")
)

func checkinVenueKey(venue [20]byte) []byte {
	return append(append([]byte(nil), checkinVenuePrefix...), hex.EncodeToString(venue[:])...)
}

func checkinReferralKey(code string) []byte {
	return append(append([]byte(nil), checkinReferralPrefix...), code...)
}

func escrowVenueKey(venue [20]byte) []byte {
	return append(append([]byte(nil), escrowVenuePrefix...), hex.EncodeToString(venue[:])...)
}

func sigNonceKey(signer [20]byte, nonce [32]byte) []byte {
	key := append(append([]byte(nil), sigNoncePrefix...), hex.EncodeToString(signer[:])...)
	key = append(key, '/')
	return append(key, hex.EncodeToString(nonce[:])...)
}

func accountKey(addr [20]byte) []byte {
	return append(append([]byte(nil), accountPrefix...), hex.EncodeToString(addr[:])...)
}

func creditKey(class string, holder [20]byte, venueID [32]byte) []byte {
	key := append(append([]byte(nil), creditPrefix...), class...)
	key = append(key, '/')
	key = append(key, hex.EncodeToString(venueID[:])...)
	key = append(key, '/')
	return append(key, hex.EncodeToString(holder[:])...)
}
