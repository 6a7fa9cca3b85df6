package flow

import (
	"fmt"
	"strings"

	"github.com/richfit/myibot/internal/account"
	"github.com/richfit/myibot/internal/session"
)

// Webhook paths, one per step that receives keypresses.
const (
	PathEntry              = "/ivr/voice"
	PathAuth               = "/ivr/auth"
	PathMenu               = "/ivr/menu"
	PathBalance            = "/ivr/balance"
	PathTransferAmount     = "/ivr/transfer/amount"
	PathTransferRecipient  = "/ivr/transfer/recipient"
	PathTransferConfirm    = "/ivr/transfer/confirm"
	PathRegisterID         = "/ivr/register"
	PathRegisterPIN        = "/ivr/register/pin"
	PathRegisterPINConfirm = "/ivr/register/pin/confirm"
	PathRegisterCode       = "/ivr/register/code"
)

// amountLength is the number of digits of a dollar amount, "0025" for 25.
const amountLength = 4

// Outcome classifies a decision for logs and metrics.
type Outcome string

const (
	OutcomeAdvance         Outcome = "advance"
	OutcomeReprompt        Outcome = "reprompt"
	OutcomeAbandon         Outcome = "abandon"
	OutcomeUnauthenticated Outcome = "unauthenticated"
	OutcomeSystemError     Outcome = "system_error"
)

// Event is one inbound webhook. HasDigits distinguishes an absent Digits
// parameter from an empty one.
type Event struct {
	CallID    string
	Caller    string
	Digits    string
	HasDigits bool
}

// Decision is what the transport should say and where the next keypress goes.
type Decision struct {
	Next  session.StepName
	Lines []string
	// Path receives the gathered digits.
	Path string
	// Digits is how many keypresses to gather.
	Digits int
	// FinishOnKey ends the gather early, "#" on the PIN prompt.
	FinishOnKey string
	// SubmitEmpty posts to Path even when nothing was pressed.
	SubmitEmpty bool
	// Fallback is requested when the caller presses nothing.
	Fallback string
	// Hangup ends the call after Lines.
	Hangup  bool
	Outcome Outcome
}

func (d Decision) with(outcome Outcome, lines ...string) Decision {
	d.Lines = append(append([]string{}, lines...), d.Lines...)
	d.Outcome = outcome
	return d
}

func systemError() Decision {
	return Decision{
		Lines:   []string{"A system error occurred. Please hang up and call again."},
		Hangup:  true,
		Outcome: OutcomeSystemError,
	}
}

func authPrompt() Decision {
	return Decision{
		Next: session.StepAuth,
		Lines: []string{
			fmt.Sprintf("Welcome to your Rich Fit MyiBot. Please enter your %d digit PIN now. "+
				"Or press the pound key to create a new account.", account.PINLength),
		},
		Path:        PathAuth,
		Digits:      account.PINLength,
		FinishOnKey: "#",
		SubmitEmpty: true,
		Fallback:    PathEntry,
	}
}

func menuPrompt() Decision {
	return Decision{
		Next:     session.StepMenu,
		Lines:    []string{"Press 1 to hear your balance. Press 2 to send money. Press 3 to repeat this menu."},
		Path:     PathMenu,
		Digits:   1,
		Fallback: PathMenu,
	}
}

func balancePrompt(cents int64) Decision {
	return Decision{
		Next: session.StepBalance,
		Lines: []string{
			fmt.Sprintf("Your balance is %d dollars and %02d cents.", cents/100, cents%100),
			"Press 1 to repeat. Press 9 for the main menu.",
		},
		Path:     PathBalance,
		Digits:   1,
		Fallback: PathMenu,
	}
}

func amountPrompt() Decision {
	return Decision{
		Next:     session.StepTransferAmount,
		Lines:    []string{"Enter the amount in dollars. For example, for 25 dollars, enter 0025."},
		Path:     PathTransferAmount,
		Digits:   amountLength,
		Fallback: PathMenu,
	}
}

func recipientPrompt(length int) Decision {
	return Decision{
		Next:     session.StepTransferRecipient,
		Lines:    []string{fmt.Sprintf("Enter the %d digit recipient code.", length)},
		Path:     PathTransferRecipient,
		Digits:   length,
		Fallback: PathMenu,
	}
}

func confirmPrompt(step session.TransferConfirm) Decision {
	return Decision{
		Next: session.StepTransferConfirm,
		Lines: []string{
			fmt.Sprintf("You are sending %d dollars to recipient %s.", step.AmountCents/100, spaced(step.RecipientCode)),
			"Press 1 to confirm. Press 2 to cancel.",
		},
		Path:     PathTransferConfirm,
		Digits:   1,
		Fallback: PathMenu,
	}
}

func registerIDPrompt() Decision {
	return Decision{
		Next:     session.StepRegisterID,
		Lines:    []string{fmt.Sprintf("To create your account, enter your %d digit I D number now.", account.MemberIDLength)},
		Path:     PathRegisterID,
		Digits:   account.MemberIDLength,
		Fallback: PathRegisterID,
	}
}

func registerPINPrompt() Decision {
	return Decision{
		Next:     session.StepRegisterPIN,
		Lines:    []string{fmt.Sprintf("Create a %d digit PIN now.", account.PINLength)},
		Path:     PathRegisterPIN,
		Digits:   account.PINLength,
		Fallback: PathRegisterPIN,
	}
}

func registerPINConfirmPrompt() Decision {
	return Decision{
		Next:     session.StepRegisterPINConfirm,
		Lines:    []string{fmt.Sprintf("Re enter your %d digit PIN to confirm.", account.PINLength)},
		Path:     PathRegisterPINConfirm,
		Digits:   account.PINLength,
		Fallback: PathRegisterPINConfirm,
	}
}

func codeMenuPrompt() Decision {
	return Decision{
		Next:     session.StepRegisterCodeMenu,
		Lines:    []string{"Press 1 to repeat the confirmation code. Press 9 for the main menu."},
		Path:     PathRegisterCode,
		Digits:   1,
		Fallback: PathMenu,
	}
}

func speakCode(code string) []string {
	return []string{"Your confirmation code is.", spaced(code)}
}

// spaced makes text-to-speech read a number digit by digit.
func spaced(digits string) string {
	return strings.Join(strings.Split(digits, ""), " ")
}
