package acoustid

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strings"

	"github.com/shoutzor/backend/internal/domain"
	"github.com/tidwall/gjson"
)

var ErrFingerprintFailed = errors.New("acoustid: fingerprint failed")

// Fpcalc fingerprints audio files with the Chromaprint fpcalc binary.
type Fpcalc struct {
	path string
}

func NewFpcalc(path string) *Fpcalc {
	if path == "" {
		path = "fpcalc"
	}
	return &Fpcalc{path: path}
}

func (f *Fpcalc) Fingerprint(ctx context.Context, filePath string) (domain.Fingerprint, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, f.path, "-json", filePath)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return domain.Fingerprint{}, fmt.Errorf("%w: %s", ErrFingerprintFailed, msg)
	}
	return parseFpcalc(stdout.Bytes())
}

func parseFpcalc(out []byte) (domain.Fingerprint, error) {
	if !gjson.ValidBytes(out) {
		return domain.Fingerprint{}, fmt.Errorf("%w: unexpected fpcalc output", ErrFingerprintFailed)
	}
	res := gjson.GetManyBytes(out, "duration", "fingerprint")
	if res[1].String() == "" {
		return domain.Fingerprint{}, fmt.Errorf("%w: empty fingerprint", ErrFingerprintFailed)
	}
	return domain.Fingerprint{
		Duration: int(math.Round(res[0].Float())),
		Value:    res[1].String(),
	}, nil
}
