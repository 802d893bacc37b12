package application

import (
	"errors"
	"sort"
	"strings"

	"github.com/example/facility-checklists/internal/persistence"
)

func mapRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	return err
}

// sortByName orders records case-insensitively by name, then by id.
func sortByName[T any](records []T, name func(T) string, id func(T) string) {
	sort.SliceStable(records, func(i, j int) bool {
		ni, nj := strings.ToLower(name(records[i])), strings.ToLower(name(records[j]))
		if ni == nj {
			return id(records[i]) < id(records[j])
		}
		return ni < nj
	})
}
