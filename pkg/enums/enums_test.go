package enums

import "testing"

func TestParseRedemptionModeDefaultsToNone(t *testing.T) {
	got, err := ParseRedemptionMode("")
	if err != nil || got != RedemptionModeNone {
		t.Fatalf("expected none, got %q (%v)", got, err)
	}
	if _, err := ParseRedemptionMode("double"); err == nil {
		t.Fatal("expected unknown mode to fail")
	}
	if RedemptionMode("").OrNone() != RedemptionModeNone {
		t.Fatal("expected empty mode to map to none")
	}
}

func TestCheckoutStateTerminal(t *testing.T) {
	if !CheckoutStateConfirmed.IsTerminal() {
		t.Fatal("confirmed should be terminal")
	}
	if CheckoutStatePaymentCollection.IsTerminal() {
		t.Fatal("payment collection should not be terminal")
	}
	if _, err := ParseCheckoutState("shipped"); err == nil {
		t.Fatal("expected unknown state to fail")
	}
}

func TestParseRoundTripsKnownValues(t *testing.T) {
	if v, err := ParseCustomerRole(string(CustomerRoleAdmin)); err != nil || v != CustomerRoleAdmin {
		t.Fatalf("role: %q %v", v, err)
	}
	if v, err := ParseOutboxEventType(string(EventOrderConfirmed)); err != nil || v != EventOrderConfirmed {
		t.Fatalf("event type: %q %v", v, err)
	}
	if v, err := ParseOutboxDLQErrorReason("decode_failed"); err != nil || v != OutboxDLQReasonDecodeFailed {
		t.Fatalf("dlq reason: %q %v", v, err)
	}
	if _, err := ParseOutboxAggregateType("store"); err == nil {
		t.Fatal("expected unknown aggregate to fail")
	}
}

func TestParseErrorNamesTheEnum(t *testing.T) {
	_, err := ParsePaymentMethod("bitcoin")
	if err == nil || err.Error() != `invalid payment method "bitcoin"` {
		t.Fatalf("unexpected error %v", err)
	}
	if PaymentMethod("Card").IsValid() {
		t.Fatal("matching must be case sensitive")
	}
}
