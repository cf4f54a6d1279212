package remote

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path"
)

// ContentType returns a MIME type based on the extension of p.
func ContentType(p string) string {
	ext := path.Ext(p)
	if ext == "" {
		return "application/octet-stream"
	}

	ct := mime.TypeByExtension(ext)
	if ct == "" {
		return "application/octet-stream"
	}

	return ct
}

// Seekable returns content as an io.ReadSeeker along with its size,
// spooling it to a temporary file when it cannot seek. release must be
// called once the upload is done.
func Seekable(content io.Reader) (body io.ReadSeeker, size int64, release func(), err error) {
	if seeker, ok := content.(io.ReadSeeker); ok {
		start, err := seeker.Seek(0, io.SeekCurrent)
		if err == nil {
			end, err := seeker.Seek(0, io.SeekEnd)
			if err == nil {
				if _, err := seeker.Seek(start, io.SeekStart); err == nil {
					return seeker, end - start, func() {}, nil
				}
			}
		}
	}

	spool, err := os.CreateTemp("", "dbxup-*")
	if err != nil {
		return nil, 0, nil, fmt.Errorf("failed to create spool file: %w", err)
	}
	release = func() {
		_ = spool.Close()
		_ = os.Remove(spool.Name())
	}

	size, err = io.Copy(spool, content)
	if err != nil {
		release()
		return nil, 0, nil, err
	}
	if _, err := spool.Seek(0, io.SeekStart); err != nil {
		release()
		return nil, 0, nil, fmt.Errorf("failed to rewind spool file: %w", err)
	}

	return spool, size, release, nil
}
