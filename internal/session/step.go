package session

// StepName identifies a point in the call flow.
type StepName string

const (
	StepEntry              StepName = "entry"
	StepAuth               StepName = "auth"
	StepMenu               StepName = "menu"
	StepBalance            StepName = "balance"
	StepTransferAmount     StepName = "transfer_amount"
	StepTransferRecipient  StepName = "transfer_recipient"
	StepTransferConfirm    StepName = "transfer_confirm"
	StepRegisterID         StepName = "register_id"
	StepRegisterPIN        StepName = "register_pin"
	StepRegisterPINConfirm StepName = "register_pin_confirm"
	StepRegisterCodeMenu   StepName = "register_code_menu"
)

// Family groups the steps of one sub-flow. Fields produced inside a family
// never survive a move to another family.
type Family int

const (
	FamilyNone Family = iota
	FamilyTransfer
	FamilyRegister
)

func (f Family) String() string {
	switch f {
	case FamilyTransfer:
		return "transfer"
	case FamilyRegister:
		return "register"
	default:
		return "none"
	}
}

// Step is the persisted state of an active sub-flow. Each variant carries only
// the fields valid for it.
type Step interface {
	Name() StepName
	Family() Family
	// inherit returns the step with fields owned by earlier steps of the same
	// family copied from prev.
	inherit(prev Step) Step
}

// TransferAmount waits for the transfer amount.
type TransferAmount struct{}

// TransferRecipient waits for the recipient code.
type TransferRecipient struct {
	AmountCents int64
}

// TransferConfirm waits for the caller to confirm or cancel.
type TransferConfirm struct {
	AmountCents   int64
	RecipientCode string
}

// RegisterID waits for the member id.
type RegisterID struct{}

// RegisterPIN waits for the new PIN.
type RegisterPIN struct {
	MemberID string
}

// RegisterPINConfirm waits for the PIN to be entered a second time.
type RegisterPINConfirm struct {
	MemberID string
	PIN      string
}

// RegisterCodeMenu offers to repeat the confirmation code.
type RegisterCodeMenu struct {
	ConfirmationCode string
}

func (TransferAmount) Name() StepName     { return StepTransferAmount }
func (TransferRecipient) Name() StepName  { return StepTransferRecipient }
func (TransferConfirm) Name() StepName    { return StepTransferConfirm }
func (RegisterID) Name() StepName         { return StepRegisterID }
func (RegisterPIN) Name() StepName        { return StepRegisterPIN }
func (RegisterPINConfirm) Name() StepName { return StepRegisterPINConfirm }
func (RegisterCodeMenu) Name() StepName   { return StepRegisterCodeMenu }

func (TransferAmount) Family() Family     { return FamilyTransfer }
func (TransferRecipient) Family() Family  { return FamilyTransfer }
func (TransferConfirm) Family() Family    { return FamilyTransfer }
func (RegisterID) Family() Family         { return FamilyRegister }
func (RegisterPIN) Family() Family        { return FamilyRegister }
func (RegisterPINConfirm) Family() Family { return FamilyRegister }
func (RegisterCodeMenu) Family() Family   { return FamilyRegister }

func (s TransferAmount) inherit(Step) Step    { return s }
func (s TransferRecipient) inherit(Step) Step { return s }

func (s TransferConfirm) inherit(prev Step) Step {
	switch p := prev.(type) {
	case TransferRecipient:
		s.AmountCents = p.AmountCents
	case TransferConfirm:
		s.AmountCents = p.AmountCents
	}
	return s
}

func (s RegisterID) inherit(Step) Step  { return s }
func (s RegisterPIN) inherit(Step) Step { return s }

func (s RegisterPINConfirm) inherit(prev Step) Step {
	switch p := prev.(type) {
	case RegisterPIN:
		s.MemberID = p.MemberID
	case RegisterPINConfirm:
		s.MemberID = p.MemberID
	}
	return s
}

func (s RegisterCodeMenu) inherit(Step) Step { return s }

// FamilyOf returns the family of step, FamilyNone for a nil step.
func FamilyOf(step Step) Family {
	if step == nil {
		return FamilyNone
	}
	return step.Family()
}
