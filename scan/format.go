package scan

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/sergev/td0scan/td0"
)

// Container represents how a candidate image is packaged on disk
type Container int

const (
	// ContainerUnknown represents a file that is neither an image nor a supported archive
	ContainerUnknown Container = iota
	ContainerTD0               // plain Teledisk image
	ContainerGzip              // single gzip-compressed file
	ContainerXz                // single xz-compressed file
	ContainerZstd              // single zstd-compressed file
	ContainerZip               // zip archive
	ContainerTar               // uncompressed tar archive
	ContainerTarGz             // gzip-compressed tar archive
	ContainerTarXz             // xz-compressed tar archive
	ContainerTarZstd           // zstd-compressed tar archive
)

// String returns the string representation of the Container
func (c Container) String() string {
	switch c {
	case ContainerTD0:
		return "TD0"
	case ContainerGzip:
		return "GZ"
	case ContainerXz:
		return "XZ"
	case ContainerZstd:
		return "ZST"
	case ContainerZip:
		return "ZIP"
	case ContainerTar:
		return "TAR"
	case ContainerTarGz:
		return "TGZ"
	case ContainerTarXz:
		return "TXZ"
	case ContainerTarZstd:
		return "TZST"
	default:
		return "Unknown"
	}
}

// Archive reports whether the container holds several members
func (c Container) Archive() bool {
	switch c {
	case ContainerZip, ContainerTar, ContainerTarGz, ContainerTarXz, ContainerTarZstd:
		return true
	}
	return false
}

// Double extensions are checked before single ones
var doubleExtensions = []struct {
	suffix    string
	container Container
}{
	{".tar.gz", ContainerTarGz},
	{".tar.xz", ContainerTarXz},
	{".tar.zst", ContainerTarZstd},
}

// DetectContainer detects the container from a filename based on its extension.
// The extension check is case-insensitive. Returns ContainerUnknown if the
// container cannot be determined.
func DetectContainer(filename string) Container {
	lower := strings.ToLower(filename)
	for _, d := range doubleExtensions {
		if strings.HasSuffix(lower, d.suffix) {
			return d.container
		}
	}

	ext := filepath.Ext(lower)
	if ext == "" {
		return ContainerUnknown
	}

	switch ext[1:] {
	case "td0":
		return ContainerTD0
	case "gz":
		return ContainerGzip
	case "xz":
		return ContainerXz
	case "zst":
		return ContainerZstd
	case "zip":
		return ContainerZip
	case "tar":
		return ContainerTar
	case "tgz":
		return ContainerTarGz
	case "txz":
		return ContainerTarXz
	case "tzst":
		return ContainerTarZstd
	default:
		return ContainerUnknown
	}
}

// Magic numbers of supported containers
var magicSignatures = []struct {
	offset    int
	magic     []byte
	container Container
}{
	{0, []byte("PK\x03\x04"), ContainerZip},
	{0, []byte{0x1f, 0x8b}, ContainerGzip},
	{0, []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}, ContainerXz},
	{0, []byte{0x28, 0xb5, 0x2f, 0xfd}, ContainerZstd},
	{257, []byte("ustar"), ContainerTar},
}

// Sniff detects the container from the leading bytes of a file.
// Compressed files are reported as single files, whatever they hold.
func Sniff(data []byte) Container {
	for _, sig := range magicSignatures {
		end := sig.offset + len(sig.magic)
		if len(data) >= end && bytes.Equal(data[sig.offset:end], sig.magic) {
			return sig.container
		}
	}
	if td0.HasSignature(data) {
		return ContainerTD0
	}
	return ContainerUnknown
}

// IsImageName reports whether a file or member name has the .td0 extension
func IsImageName(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".td0")
}

// innerName drops the compression suffix: "disk.td0.gz" becomes "disk.td0"
func innerName(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
