package publish

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/gospiritual/yacy-search-server/seeddb"
	"github.com/gospiritual/yacy-search-server/types"
)

const (
	// DefaultVerifyTimeout bounds the verification download.
	DefaultVerifyTimeout = 10 * time.Second

	lineTerminator  = "\r\n"
	tempFilePattern = "seedFile*.txt"
	maxLineLength   = 64 * 1024
)

var (
	// ErrTransport is returned when the seed list could not be uploaded or
	// downloaded again for verification.
	ErrTransport = errors.New("seed list transport failed")
	// ErrVerificationMismatch is returned when the downloaded seed list
	// differs from the uploaded one.
	ErrVerificationMismatch = errors.New("published seed list does not match")
)

// Directory is the part of the seed directory a publication reads from.
type Directory interface {
	MySeed() *types.Seed
	SeedsConnected(ascending, rotate bool, firstHash string) *seeddb.SeedIterator
}

// WriteSeedList writes one seed string per line, CRLF terminated: the own
// seed first if includeSelf is set, then every Connected peer in hash order.
// Seeds that cannot be encoded are skipped. It returns the written lines.
func WriteSeedList(w io.Writer, dir Directory, includeSelf bool) ([]string, error) {
	bw := bufio.NewWriter(w)
	lines := make([]string, 0)

	write := func(seed *types.Seed) error {
		line, err := seed.SeedString()
		if err != nil {
			return nil
		}
		if _, err := bw.WriteString(line + lineTerminator); err != nil {
			return err
		}
		lines = append(lines, line)
		return nil
	}

	if includeSelf {
		if err := write(dir.MySeed()); err != nil {
			return nil, err
		}
	}

	it := dir.SeedsConnected(true, false, "")
	defer it.Close()
	for seed := it.Next(); seed != nil; seed = it.Next() {
		if err := write(seed); err != nil {
			return nil, err
		}
	}

	if err := bw.Flush(); err != nil {
		return nil, err
	}
	return lines, nil
}

// StoreCache writes the seed list to path, replacing any previous content.
func StoreCache(dir Directory, path string, includeSelf bool) ([]string, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	lines, err := WriteSeedList(f, dir, includeSelf)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, err
	}
	return lines, nil
}

// FetchSeedList downloads the seed list at seedURL and returns its lines.
// Intermediate caches are asked not to answer the request.
func FetchSeedList(ctx context.Context, seedURL string, timeout time.Duration) ([]string, error) {
	if timeout <= 0 {
		timeout = DefaultVerifyTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, seedURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: %s", seedURL, resp.Status)
	}
	return ReadSeedList(resp.Body)
}

// ReadSeedList splits r into lines. Both LF and CRLF terminators are
// accepted.
func ReadSeedList(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxLineLength)
	lines := make([]string, 0)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// CheckCache downloads seedURL and compares it line by line with lines. The
// lists match only if they have the same length and equal lines in the same
// order. Download failures wrap ErrTransport, differences
// ErrVerificationMismatch.
func CheckCache(ctx context.Context, lines []string, seedURL string, timeout time.Duration) error {
	remote, err := FetchSeedList(ctx, seedURL, timeout)
	if err != nil {
		return fmt.Errorf("%w: download of %s failed: %w", ErrTransport, seedURL, err)
	}
	if len(remote) != len(lines) {
		return errors.Wrapf(ErrVerificationMismatch,
			"expected %d lines, got %d", len(lines), len(remote))
	}
	for i := range lines {
		if lines[i] != remote[i] {
			return errors.Wrapf(ErrVerificationMismatch, "line %d differs", i+1)
		}
	}
	return nil
}

// UploadCache exports the own seed and the Connected peers to a temporary
// file, hands it to uploader and verifies the result at seedURL. The
// temporary file is removed in all cases. It returns the uploader's log
// followed by the outcome of the check.
func UploadCache(
	ctx context.Context,
	dir Directory,
	uploader Uploader,
	tmpDir, seedURL string,
	timeout time.Duration,
) (string, error) {
	log, _, err := uploadCache(ctx, dir, uploader, tmpDir, seedURL, timeout)
	return log, err
}

func uploadCache(
	ctx context.Context,
	dir Directory,
	uploader Uploader,
	tmpDir, seedURL string,
	timeout time.Duration,
) (log string, seeds int, err error) {
	f, err := os.CreateTemp(tmpDir, tempFilePattern)
	if err != nil {
		return "", 0, errors.Wrap(err, "failed to create seed file")
	}
	path := f.Name()
	f.Close()
	defer os.Remove(path)

	lines, err := StoreCache(dir, path, true)
	if err != nil {
		return "", 0, errors.Wrap(err, "failed to write seed file")
	}

	log, err = uploader.UploadSeedFile(ctx, dir, path)
	if err != nil {
		return log, 0, fmt.Errorf("%w: upload failed: %w", ErrTransport, err)
	}

	if err := CheckCache(ctx, lines, seedURL, timeout); err != nil {
		return log, 0, err
	}
	return appendLog(log, "UPLOAD CHECK - Success: the result vectors are equal"), len(lines), nil
}

// CopyCache writes the seed list to path, which is expected to be served
// at seedURL, and verifies it.
func CopyCache(ctx context.Context, dir Directory, path, seedURL string, timeout time.Duration) (string, error) {
	lines, err := StoreCache(dir, path, true)
	if err != nil {
		return "", errors.Wrap(err, "failed to write seed file")
	}
	if err := CheckCache(ctx, lines, seedURL, timeout); err != nil {
		return "", err
	}
	return fmt.Sprintf("COPY CHECK - Success: %d seeds at %s", len(lines), seedURL), nil
}

func appendLog(log, line string) string {
	if log == "" {
		return line
	}
	return log + "\n" + line
}
