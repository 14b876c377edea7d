package bounty

import "fmt"

// Error is a coded program failure. The code/message pairs for the business
// errors (6000+) are part of the wire contract: the off-chain backend maps
// them to user-facing text, so numbering and order must not change.
type Error struct {
	Code    uint32
	Name    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("custom program error %d (%s): %s", e.Code, e.Name, e.Message)
}

// ErrorCode implements the runtime's coded-error contract.
func (e *Error) ErrorCode() uint32 { return e.Code }

// ErrorMessage returns the static caller-facing message.
func (e *Error) ErrorMessage() string { return e.Message }

// Business errors, codes 6000 + declaration index.
var (
	ErrInsufficientFunds     = &Error{Code: 6000, Name: "InsufficientFunds", Message: "Insufficient funds in the vault."}
	ErrOverflow              = &Error{Code: 6001, Name: "Overflow", Message: "Arithmetic overflow occurred."}
	ErrUnderflow             = &Error{Code: 6002, Name: "Underflow", Message: "Arithmetic underflow occurred."}
	ErrInvalidEscrowAmount   = &Error{Code: 6003, Name: "InvalidEscrowAmount", Message: "Invalid escrow amount"}
	ErrMaxSubmissionsReached = &Error{Code: 6004, Name: "MaxSubmissionsReached", Message: "Maximum submissions reached"}
)

// Constraint and account errors live outside the business space so the
// off-chain error mapping stays intact. Authorization failures are relation
// constraints, not payment failures.
var (
	ErrOwnerConstraint       = &Error{Code: 2001, Name: "ConstraintHasOne", Message: "A has one constraint was violated"}
	ErrAccountNotSigner      = &Error{Code: 3010, Name: "AccountNotSigner", Message: "The given account did not sign"}
	ErrInvalidProgramID      = &Error{Code: 3008, Name: "InvalidProgramId", Message: "Program ID was not as expected"}
	ErrVaultSeedsConstraint  = &Error{Code: 2006, Name: "ConstraintSeeds", Message: "A seeds constraint was violated"}
	ErrAccountNotInitialized = &Error{Code: 3012, Name: "AccountNotInitialized", Message: "The program expected this account to be already initialized"}
	ErrAccountAlreadyInUse   = &Error{Code: 0, Name: "AccountAlreadyInUse", Message: "Account already in use"}
)
