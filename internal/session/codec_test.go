package session

import (
	"errors"
	"testing"
)

func TestEncodeDecodeKeepsVariant(t *testing.T) {
	steps := []Step{
		TransferAmount{},
		TransferRecipient{AmountCents: 0},
		TransferConfirm{AmountCents: 2500, RecipientCode: "12345678"},
		RegisterID{},
		RegisterPIN{MemberID: "12345678"},
		RegisterPINConfirm{MemberID: "12345678", PIN: "222"},
		RegisterCodeMenu{ConfirmationCode: "004211"},
	}
	for _, step := range steps {
		raw, err := encode(Session{Authed: true, Caller: "+1555", Step: step, Version: 7})
		if err != nil {
			t.Fatalf("encode %s: %v", step.Name(), err)
		}
		got, err := decode(raw)
		if err != nil {
			t.Fatalf("decode %s: %v", step.Name(), err)
		}
		if got.Step != step || got.Version != 7 || got.Caller != "+1555" {
			t.Fatalf("mismatch for %s: %+v", step.Name(), got)
		}
	}
}

func TestDecodeRejectsMismatchedShapes(t *testing.T) {
	cases := map[string]string{
		"missing amount":     `{"authed":false,"version":1,"step":"transfer_recipient","data":{}}`,
		"negative amount":    `{"authed":false,"version":1,"step":"transfer_recipient","data":{"amount_cents":-1}}`,
		"foreign field":      `{"authed":false,"version":1,"step":"register_pin","data":{"member_id":"12345678","amount_cents":5}}`,
		"short member id":    `{"authed":false,"version":1,"step":"register_pin","data":{"member_id":"1234"}}`,
		"non digit pin":      `{"authed":false,"version":1,"step":"register_pin_confirm","data":{"member_id":"12345678","pin":"2a2"}}`,
		"unknown data field": `{"authed":false,"version":1,"step":"register_id","data":{"nickname":"x"}}`,
		"unknown step":       `{"authed":false,"version":1,"step":"withdraw","data":{}}`,
		"bad code":           `{"authed":false,"version":1,"step":"register_code_menu","data":{"confirmation_code":"12"}}`,
	}
	for name, payload := range cases {
		sess, err := decode([]byte(payload))
		if !errors.Is(err, errInvalidStep) {
			t.Fatalf("%s: expected invalid step, got %v", name, err)
		}
		if sess.Step != nil {
			t.Fatalf("%s: expected no step, got %#v", name, sess.Step)
		}
	}
}

func TestDecodeRejectsBadEnvelope(t *testing.T) {
	for _, payload := range []string{
		`[]`,
		`{"authed":true,"version":1}`,
		`{"authed":false,"version":1,"extra":true}`,
	} {
		if _, err := decode([]byte(payload)); !errors.Is(err, errInvalidEnvelope) {
			t.Fatalf("%s: expected invalid envelope, got %v", payload, err)
		}
	}
}

func TestIsDigits(t *testing.T) {
	cases := map[string]bool{
		"":         false,
		"0":        true,
		"0025":     true,
		"12a":      false,
		"#":        false,
		" 12":      false,
		"١٢":       false,
		"12345678": true,
	}
	for in, want := range cases {
		if got := IsDigits(in); got != want {
			t.Fatalf("IsDigits(%q) = %v, want %v", in, got, want)
		}
	}
}
