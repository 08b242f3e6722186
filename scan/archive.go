package scan

import (
	"archive/tar"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// Member is one candidate image, either a plain file or an archive member
type Member struct {
	Archive   string // path of the enclosing file, empty for plain files
	Name      string // file path or member name
	Container Container
	Data      []byte
}

// Path names the member as "archive / name" or just the file path
func (m *Member) Path() string {
	if m.Archive == "" {
		return m.Name
	}
	return m.Archive + " / " + m.Name
}

// Members calls fn for each TD0 image held by a file: the file itself,
// its decompressed content, or every .td0 member of an archive.
// Read errors are returned, and so is the first error from fn.
func Members(filename string, data []byte, fn func(Member) error) error {
	c := DetectContainer(filename)
	if c == ContainerUnknown {
		c = Sniff(data)
	}

	switch c {
	case ContainerTD0:
		return fn(Member{Name: filename, Container: c, Data: data})
	case ContainerZip:
		return zipMembers(filename, data, fn)
	case ContainerTar:
		return tarMembers(filename, c, bytes.NewReader(data), fn)
	case ContainerGzip, ContainerXz, ContainerZstd, ContainerTarGz, ContainerTarXz, ContainerTarZstd:
		return compressedMembers(filename, c, data, fn)
	default:
		return nil
	}
}

// decompress wraps r with the decoder the container needs
func decompress(c Container, r io.Reader) (io.ReadCloser, error) {
	switch c {
	case ContainerGzip, ContainerTarGz:
		return gzip.NewReader(r)
	case ContainerXz, ContainerTarXz:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(xr), nil
	case ContainerZstd, ContainerTarZstd:
		zr, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, err
		}
		return zr.IOReadCloser(), nil
	default:
		return nil, fmt.Errorf("%s is not a compressed container", c)
	}
}

func compressedMembers(filename string, c Container, data []byte, fn func(Member) error) error {
	r, err := decompress(c, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", filename, err)
	}
	defer r.Close()

	if c.Archive() {
		return tarMembers(filename, c, r, fn)
	}

	// A single compressed file: only disk.td0.gz and the like are images
	inner := innerName(path.Base(filename))
	if !IsImageName(inner) {
		return nil
	}
	content, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to decompress %s: %w", filename, err)
	}
	return fn(Member{Archive: filename, Name: inner, Container: c, Data: content})
}

func zipMembers(filename string, data []byte, fn func(Member) error) error {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("failed to open zip %s: %w", filename, err)
	}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !IsImageName(f.Name) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("failed to open %s in %s: %w", f.Name, filename, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return fmt.Errorf("failed to read %s in %s: %w", f.Name, filename, err)
		}
		if err := fn(Member{Archive: filename, Name: f.Name, Container: ContainerZip, Data: content}); err != nil {
			return err
		}
	}
	return nil
}

func tarMembers(filename string, c Container, r io.Reader, fn func(Member) error) error {
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read tar %s: %w", filename, err)
		}
		if hdr.Typeflag != tar.TypeReg || !IsImageName(hdr.Name) {
			continue
		}
		content, err := io.ReadAll(tr)
		if err != nil {
			return fmt.Errorf("failed to read %s in %s: %w", hdr.Name, filename, err)
		}
		if err := fn(Member{Archive: filename, Name: hdr.Name, Container: c, Data: content}); err != nil {
			return err
		}
	}
}
