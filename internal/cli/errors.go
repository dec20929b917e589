package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/vietddude/soqlguard/internal/core/domain"
	"github.com/vietddude/soqlguard/internal/infra/salesforce"
)

// Exit codes reported for terminal outcomes.
const (
	exitFailed           = 2
	exitTransportFailure = 3
	exitTimeout          = 4
)

// exitError ends the command with a specific status after the failure has
// already been shown.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func exitCodeFor(kind domain.OutcomeKind) int {
	switch kind {
	case domain.OutcomeSucceeded:
		return 0
	case domain.OutcomeTransportFailure:
		return exitTransportFailure
	case domain.OutcomeTimeout:
		return exitTimeout
	default:
		return exitFailed
	}
}

// failureMessage returns a headline and a troubleshooting hint for a
// non-successful result.
func failureMessage(res *domain.ExecutionResult) (string, string) {
	switch res.Kind {
	case domain.OutcomeTimeout:
		return "Request timed out", "The service did not answer in time. Raise salesforce.timeout or retry later."
	case domain.OutcomeFailed:
		if res.Classification == nil {
			return "Query failed", res.Error
		}
		switch res.Classification.Kind {
		case domain.ClassObjectError:
			return "Object not supported", fmt.Sprintf("%s cannot be queried with this API version or user.", res.Classification.ObjectName)
		case domain.ClassFieldError:
			if lastRepair(res) == domain.RepairBudgetSpent {
				hint := fmt.Sprintf("The service rejected %s and no repairs are left.", res.Classification.FieldName)
				if len(res.RemovedFields) > 0 {
					hint += " Removed: " + strings.Join(res.RemovedFields, ", ")
				}
				return "Retry budget exhausted", hint
			}
			return "Field could not be removed", fmt.Sprintf("The service rejected %s but it is not in the select list.", res.Classification.FieldName)
		case domain.ClassQueryStructureError:
			return "Query structure rejected", res.Classification.String()
		default:
			return "Query failed", res.Classification.ErrorMessage
		}
	}

	var te *salesforce.TransportError
	if !errors.As(res.Err, &te) {
		return "Transport failure", res.Error
	}
	switch te.Kind {
	case salesforce.KindUnauthorized:
		return "Not authorized", "The session was rejected. Run: soqlguard login"
	case salesforce.KindDNS:
		return "Could not resolve host", "Check the instance URL and your DNS settings."
	case salesforce.KindTLS:
		return "TLS handshake failed", "The server certificate could not be verified."
	case salesforce.KindTimeout:
		return "Request timed out", "The service did not answer in time."
	case salesforce.KindEncoding:
		return "Unreadable response", "The service returned a body that is not JSON."
	default:
		return "Connection failed", "Could not reach the service. Check your network connection."
	}
}

func lastRepair(res *domain.ExecutionResult) domain.RepairAction {
	if len(res.Trail) == 0 {
		return domain.RepairNone
	}
	return res.Trail[len(res.Trail)-1].Repair
}

// presentResult prints a failure banner for res and returns the exit error
// for its kind, nil on success.
func presentResult(res *domain.ExecutionResult) error {
	if res.Succeeded {
		return nil
	}
	title, hint := failureMessage(res)
	pterm.Error.Println(title)
	if hint != "" {
		pterm.Println("   " + hint)
	}
	if len(res.RemovedFields) > 0 {
		pterm.Println("   Removed before failing: " + fmt.Sprint(res.RemovedFields))
	}
	return &exitError{code: exitCodeFor(res.Kind), err: errors.New(title)}
}

func presentError(err error) {
	pterm.Error.Println(err.Error())
}
