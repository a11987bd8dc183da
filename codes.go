package crew

import (
	"context"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/segmentio/ksuid"
	"github.com/uptrace/bun"
)

const (
	companyCodeLength = 6
	projectCodeLength = 8
	codeAttempts      = 10
)

// CodeGenerator produces join code candidates of the given length
type CodeGenerator func(length int) string

// KSUIDCodeGenerator takes the random tail of a fresh KSUID. The tail is
// base62 payload so it never repeats the timestamp prefix.
func KSUIDCodeGenerator(length int) string {
	id := ksuid.New().String()
	if length > len(id) {
		length = len(id)
	}
	return strings.ToUpper(id[len(id)-length:])
}

type codeTakenFunc func(ctx context.Context, tx bun.IDB, code string) (bool, error)

func (s *Service) uniqueCode(ctx context.Context, tx bun.IDB, length int, taken codeTakenFunc) (string, error) {
	for i := 0; i < codeAttempts; i++ {
		code := normalizeCode(s.codes(length))
		exists, err := taken(ctx, tx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
		s.logger.Debug("join code collision on attempt %d", i+1)
	}
	return "", goerrors.New("could not allocate a unique code", goerrors.CategoryInternal).
		WithCode(goerrors.CodeInternal)
}
