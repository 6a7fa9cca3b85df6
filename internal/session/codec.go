package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	errInvalidEnvelope = errors.New("invalid session envelope")
	errInvalidStep     = errors.New("invalid step data")
)

type envelope struct {
	Authed  bool            `json:"authed"`
	Caller  string          `json:"caller,omitempty"`
	Version int64           `json:"version"`
	Step    StepName        `json:"step,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type stepData struct {
	AmountCents      *int64 `json:"amount_cents,omitempty"`
	RecipientCode    string `json:"recipient_code,omitempty"`
	MemberID         string `json:"member_id,omitempty"`
	PIN              string `json:"pin,omitempty"`
	ConfirmationCode string `json:"confirmation_code,omitempty"`
}

func encode(s Session) ([]byte, error) {
	env := envelope{Authed: s.Authed, Caller: s.Caller, Version: s.Version}
	if s.Step != nil {
		data, err := encodeStep(s.Step)
		if err != nil {
			return nil, err
		}
		env.Step = s.Step.Name()
		env.Data = data
	}
	return json.Marshal(env)
}

func encodeStep(step Step) ([]byte, error) {
	var d stepData
	switch v := step.(type) {
	case TransferAmount, RegisterID:
		return nil, nil
	case TransferRecipient:
		d.AmountCents = &v.AmountCents
	case TransferConfirm:
		d.AmountCents = &v.AmountCents
		d.RecipientCode = v.RecipientCode
	case RegisterPIN:
		d.MemberID = v.MemberID
	case RegisterPINConfirm:
		d.MemberID = v.MemberID
		d.PIN = v.PIN
	case RegisterCodeMenu:
		d.ConfirmationCode = v.ConfirmationCode
	default:
		return nil, fmt.Errorf("unknown step %T", step)
	}
	return json.Marshal(d)
}

// decode parses a persisted session. A readable envelope whose step data does
// not match the shape of its step is returned without a step alongside
// errInvalidStep.
func decode(raw []byte) (Session, error) {
	var env envelope
	if err := strictUnmarshal(raw, &env); err != nil {
		return Session{}, fmt.Errorf("%w: %v", errInvalidEnvelope, err)
	}
	if env.Authed && env.Caller == "" {
		return Session{}, fmt.Errorf("%w: authed without caller", errInvalidEnvelope)
	}
	s := Session{Authed: env.Authed, Caller: env.Caller, Version: env.Version}
	if env.Step == "" {
		return s, nil
	}
	step, err := decodeStep(env.Step, env.Data)
	if err != nil {
		return s, err
	}
	s.Step = step
	return s, nil
}

func decodeStep(name StepName, raw json.RawMessage) (Step, error) {
	var d stepData
	if len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
		if err := strictUnmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", errInvalidStep, name, err)
		}
	}
	invalid := func(field string) error {
		return fmt.Errorf("%w: %s: bad %s", errInvalidStep, name, field)
	}

	switch name {
	case StepTransferAmount:
		if !d.empty() {
			return nil, invalid("fields")
		}
		return TransferAmount{}, nil
	case StepTransferRecipient:
		if d.AmountCents == nil || *d.AmountCents < 0 {
			return nil, invalid("amount_cents")
		}
		if d.RecipientCode != "" || d.MemberID != "" || d.PIN != "" || d.ConfirmationCode != "" {
			return nil, invalid("fields")
		}
		return TransferRecipient{AmountCents: *d.AmountCents}, nil
	case StepTransferConfirm:
		if d.AmountCents == nil || *d.AmountCents < 0 {
			return nil, invalid("amount_cents")
		}
		if !IsDigits(d.RecipientCode) {
			return nil, invalid("recipient_code")
		}
		if d.MemberID != "" || d.PIN != "" || d.ConfirmationCode != "" {
			return nil, invalid("fields")
		}
		return TransferConfirm{AmountCents: *d.AmountCents, RecipientCode: d.RecipientCode}, nil
	case StepRegisterID:
		if !d.empty() {
			return nil, invalid("fields")
		}
		return RegisterID{}, nil
	case StepRegisterPIN:
		if !isDigitsOfLength(d.MemberID, memberIDLength) {
			return nil, invalid("member_id")
		}
		if d.AmountCents != nil || d.RecipientCode != "" || d.PIN != "" || d.ConfirmationCode != "" {
			return nil, invalid("fields")
		}
		return RegisterPIN{MemberID: d.MemberID}, nil
	case StepRegisterPINConfirm:
		if !isDigitsOfLength(d.MemberID, memberIDLength) {
			return nil, invalid("member_id")
		}
		if !isDigitsOfLength(d.PIN, pinLength) {
			return nil, invalid("pin")
		}
		if d.AmountCents != nil || d.RecipientCode != "" || d.ConfirmationCode != "" {
			return nil, invalid("fields")
		}
		return RegisterPINConfirm{MemberID: d.MemberID, PIN: d.PIN}, nil
	case StepRegisterCodeMenu:
		if !isDigitsOfLength(d.ConfirmationCode, confirmationCodeLength) {
			return nil, invalid("confirmation_code")
		}
		if d.AmountCents != nil || d.RecipientCode != "" || d.MemberID != "" || d.PIN != "" {
			return nil, invalid("fields")
		}
		return RegisterCodeMenu{ConfirmationCode: d.ConfirmationCode}, nil
	default:
		return nil, fmt.Errorf("%w: unknown step %q", errInvalidStep, name)
	}
}

func (d stepData) empty() bool {
	return d == stepData{}
}

func strictUnmarshal(raw []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
