package remote

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
)

// MaxRenameAttempts bounds the search for a free name during autorename.
const MaxRenameAttempts = 1000

// ErrNoFreeName is returned when every rename candidate is taken.
var ErrNoFreeName = errors.New("no free name")

// RenameCandidate returns the n-th alternative for p using the
// "name (n).ext" convention. n == 0 returns p unchanged.
func RenameCandidate(p string, n int) string {
	if n == 0 {
		return p
	}

	dir, base := path.Split(p)
	ext := path.Ext(base)
	if ext == base {
		ext = ""
	}
	stem := strings.TrimSuffix(base, ext)

	return fmt.Sprintf("%s%s (%d)%s", dir, stem, n, ext)
}

// ExistsFunc reports whether a remote path is taken.
type ExistsFunc func(ctx context.Context, p string) (bool, error)

// Autorename returns the first candidate for p that does not exist yet.
// Backends without server-side autorename use it for ModeAdd uploads.
func Autorename(ctx context.Context, p string, exists ExistsFunc) (string, error) {
	for n := 0; n < MaxRenameAttempts; n++ {
		candidate := RenameCandidate(p, n)
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w for %s after %d attempts", ErrNoFreeName, p, MaxRenameAttempts)
}
