package images

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"sort"

	"github.com/klauspost/compress/gzip"
)

// Sample CP/M disk, 4 cylinders of 9 x 512 bytes, as a normal TD0 image
//
//go:embed cpm-normal.td0.gz
var cpmNormalTd0Gz []byte

// The same disk with advanced (LZHUF) compression
//
//go:embed cpm-advanced.td0.gz
var cpmAdvancedTd0Gz []byte

// Expected flat sector image of the sample disk
//
//go:embed cpm-flat.img.gz
var cpmFlatImgGz []byte

// LZHUF stream and its expansion, large enough to rebuild the Huffman tree
//
//go:embed lzhuf-sample.lzh.gz
var lzhufSampleLzhGz []byte

//go:embed lzhuf-sample.bin.gz
var lzhufSampleBinGz []byte

var imageMap = map[string][]byte{
	"cpm-normal.td0.gz":   cpmNormalTd0Gz,
	"cpm-advanced.td0.gz": cpmAdvancedTd0Gz,
	"cpm-flat.img.gz":     cpmFlatImgGz,
	"lzhuf-sample.lzh.gz": lzhufSampleLzhGz,
	"lzhuf-sample.bin.gz": lzhufSampleBinGz,
}

// Names returns the embedded image names without the ".gz" suffix, sorted.
func Names() []string {
	names := make([]string, 0, len(imageMap))
	for name := range imageMap {
		names = append(names, name[:len(name)-len(".gz")])
	}
	sort.Strings(names)
	return names
}

// GetImage retrieves and decompresses an embedded image file.
// The filename parameter is the base filename (e.g., "cpm-normal.td0"),
// and this function will automatically append ".gz" to look up the
// embedded compressed file.
func GetImage(filename string) ([]byte, error) {
	gzFilename := filename + ".gz"

	compressedData, ok := imageMap[gzFilename]
	if !ok {
		return nil, fmt.Errorf("embedded image not found: %s (looked for %s)", filename, gzFilename)
	}

	gzReader, err := gzip.NewReader(bytes.NewReader(compressedData))
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader for %s: %w", filename, err)
	}
	defer gzReader.Close()

	decompressed, err := io.ReadAll(gzReader)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress %s: %w", filename, err)
	}

	return decompressed, nil
}
