package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"unicode"

	"todosync/internal/service"
	"todosync/internal/syncer"
)

// ErrTaskRefRequired indicates no task reference was provided.
var ErrTaskRefRequired = errors.New("task reference required")

// ParseTaskNum parses a 1-based task number from args. Task numbers
// refer to positions in the current newest-first canonical list.
func ParseTaskNum(args []string) (int, error) {
	if len(args) == 0 {
		return 0, ErrTaskRefRequired
	}
	ref := args[0]
	if !isAllDigits(ref) {
		return 0, fmt.Errorf("invalid task reference: %s", ref)
	}
	num, err := strconv.Atoi(ref)
	if err != nil || num < 1 {
		return 0, fmt.Errorf("invalid task reference: %s", ref)
	}
	return num, nil
}

// isAllDigits returns true if s consists only of ASCII digits and is non-empty.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// resolveTask refreshes the canonical collection and returns the task
// at the 1-based position num. When the refresh fails but cached tasks
// exist, resolution degrades to the cached list with a warning; the
// remote service still arbitrates the mutation that follows.
func resolveTask(ctx context.Context, syn *syncer.Synchronizer, num int, errOut io.Writer) (service.Task, error) {
	if err := syn.Refresh(ctx); err != nil {
		if service.KindOf(err) == service.KindValidation || len(syn.Tasks()) == 0 {
			return service.Task{}, err
		}
		fmt.Fprintf(errOut, "warning: using cached tasks: %v\n", err)
	}

	tasks := syn.Tasks()
	if num > len(tasks) {
		return service.Task{}, service.Errf(service.KindValidation, "task number out of range: %d", num)
	}
	return tasks[num-1], nil
}
