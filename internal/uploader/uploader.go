package uploader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/parnexcodes/dbxup/internal/cleanup"
	"github.com/parnexcodes/dbxup/internal/logging"
	"github.com/parnexcodes/dbxup/internal/pathutil"
	"github.com/parnexcodes/dbxup/internal/remote"
)

// Uploader uploads local files and folders to a remote client, one file at
// a time, logging every step.
type Uploader struct {
	client  remote.Client
	log     *logging.Logger
	cleaner *cleanup.Cleaner
	scanner Scanner
}

// New creates an Uploader.
func New(client remote.Client, log *logging.Logger, rules cleanup.Rules) *Uploader {
	return &Uploader{
		client:  client,
		log:     log,
		cleaner: cleanup.New(log, rules),
		scanner: &DefaultScanner{},
	}
}

// Upload logs the start banner and runs one session. Per-file problems are
// logged as FAIL and recorded with nil metadata; remote errors and
// cancellation end the session, which is then logged as failed and the
// error returned along with everything recorded so far.
func (u *Uploader) Upload(ctx context.Context, req Request) (*Result, error) {
	u.log.Banner(logging.BannerStarted)
	return u.Run(ctx, req)
}

// Run is Upload for a session whose start banner was already logged.
func (u *Uploader) Run(ctx context.Context, req Request) (*Result, error) {
	result := NewResult()
	if err := u.run(ctx, req, result); err != nil {
		// Backends do not always surface cancellation as the cause.
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = fmt.Errorf("%w: %v", ctxErr, err)
		}
		Abort(u.log, err)
		return result, err
	}

	u.log.Banner(logging.BannerEnded)
	return result, nil
}

// Abort logs err as the reason the session failed, followed by the failed
// banner.
func Abort(log *logging.Logger, err error) {
	if errors.Is(err, context.Canceled) {
		log.Error("Script interrupted by user.")
	} else {
		log.Error("Error: %v", err)
	}
	log.Banner(logging.BannerFailed)
}

func (u *Uploader) run(ctx context.Context, req Request, result *Result) error {
	root := req.Root
	if root == "" {
		root = "."
	}
	location := pathutil.Normalize(req.Location)

	for _, input := range req.Paths {
		if err := ctx.Err(); err != nil {
			return err
		}

		file := pathutil.Normalize(input)
		local := localPath(root, file)

		var info os.FileInfo
		var statErr error
		if file == "" {
			statErr = os.ErrNotExist
		} else {
			info, statErr = os.Stat(local)
		}

		switch {
		case statErr == nil && info.Mode().IsRegular():
			if req.Cleanup {
				u.cleaner.Clean(local)
			}
			destination := pathutil.Destination(location, file, req.PreservePaths)
			metadata, err := u.UploadFile(ctx, root, file, destination, req.Replace)
			result.Set(file, metadata)
			if err != nil {
				return err
			}

		case statErr == nil && info.IsDir():
			if req.Cleanup {
				u.cleaner.Clean(local)
			}
			if err := u.UploadFolder(ctx, root, file, location, req.PreservePaths, req.Replace, result); err != nil {
				return err
			}

		default:
			u.log.Fail("Could not locate the file: %s", file)
		}
	}

	return nil
}

// UploadFile uploads the file at the normalized path file (relative to
// root) into the remote folder destination. A file that cannot be opened
// or is over the client's size limit is logged as FAIL and yields nil
// metadata and no error.
func (u *Uploader) UploadFile(ctx context.Context, root, file, destination string, replace bool) (*remote.Metadata, error) {
	f, err := os.Open(localPath(root, file))
	if err != nil {
		u.log.Fail("Couldn't open file %q: %v", file, err)
		return nil, nil
	}
	defer f.Close()

	u.log.Info("Opened %q", file)

	if limited, ok := u.client.(remote.Limited); ok && limited.MaxUploadSize() > 0 {
		if info, err := f.Stat(); err == nil && info.Size() > limited.MaxUploadSize() {
			u.log.Fail("Couldn't upload %q: %d bytes exceeds the %d byte limit of %s",
				file, info.Size(), limited.MaxUploadSize(), u.client.Name())
			return nil, nil
		}
	}

	u.log.Info("Uploading %q", file)

	mode, autorename := remote.ModeAdd, true
	if replace {
		mode, autorename = remote.ModeOverwrite, false
	}

	target := pathutil.Join(destination, pathutil.Base(file))
	metadata, err := u.client.Upload(ctx, target, &contextReader{ctx: ctx, reader: f}, mode, autorename)
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s: %w", file, err)
	}

	u.log.Pass("Uploaded %q to \"remote://%s\"", file, metadata.PathDisplay)
	return metadata, nil
}

// UploadFolder uploads every file below folder. Without preservePaths all
// files land directly in location; with it each file keeps its ancestry
// under location.
func (u *Uploader) UploadFolder(ctx context.Context, root, folder, location string, preservePaths, replace bool, result *Result) error {
	u.log.Info("Uploading folder %q", folder)
	u.log.Debug("Foldername is %s", folder)

	err := u.scanner.Scan(ctx, root, localPath(root, folder), func(fileInfo FileInfo) error {
		if fileInfo.Err != nil {
			u.log.Fail("Couldn't read %q: %v", fileInfo.Path, fileInfo.Err)
			return nil
		}

		destination := pathutil.Destination(location, fileInfo.Path, preservePaths)
		u.log.Debug("Filepath is %s. Location is %s.", fileInfo.Path, destination)

		metadata, err := u.UploadFile(ctx, root, fileInfo.Path, destination, replace)
		result.Set(fileInfo.Path, metadata)
		return err
	})
	if err != nil {
		return err
	}

	u.log.Pass("Uploaded folder %q to \"remote://%s\"", folder, location)
	return nil
}

func localPath(root, file string) string {
	return filepath.Join(root, pathutil.Local(file))
}

// errNotSeekable is returned by contextReader.Seek when the wrapped reader
// cannot seek.
var errNotSeekable = errors.New("reader does not support seeking")

// contextReader wraps an io.Reader to stop reading once ctx is done. It
// seeks when the wrapped reader does.
type contextReader struct {
	ctx    context.Context
	reader io.Reader
}

func (cr *contextReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.reader.Read(p)
}

func (cr *contextReader) Seek(offset int64, whence int) (int64, error) {
	seeker, ok := cr.reader.(io.Seeker)
	if !ok {
		return 0, errNotSeekable
	}
	return seeker.Seek(offset, whence)
}
