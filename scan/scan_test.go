package scan

import (
	"archive/tar"
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/ulikunitz/xz"

	"github.com/sergev/td0scan/analyze"
	"github.com/sergev/td0scan/images"
)

// Normal TD0 header without comment, followed by the end marker
var emptyImage, _ = hex.DecodeString("544400001502030100012d68ff")

func loadImage(t *testing.T, name string) []byte {
	t.Helper()
	data, err := images.GetImage(name)
	if err != nil {
		t.Fatalf("GetImage(%s) failed: %v", name, err)
	}
	return data
}

type file struct {
	name string
	data []byte
}

func zipData(t *testing.T, files ...file) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		w, err := zw.Create(f.name)
		if err != nil {
			t.Fatalf("zip Create failed: %v", err)
		}
		if _, err := w.Write(f.data); err != nil {
			t.Fatalf("zip Write failed: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip Close failed: %v", err)
	}
	return buf.Bytes()
}

func tarData(t *testing.T, files ...file) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, f := range files {
		hdr := &tar.Header{Name: f.name, Mode: 0644, Size: int64(len(f.data)), Typeflag: tar.TypeReg}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("tar WriteHeader failed: %v", err)
		}
		if _, err := tw.Write(f.data); err != nil {
			t.Fatalf("tar Write failed: %v", err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("tar Close failed: %v", err)
	}
	return buf.Bytes()
}

func compress(t *testing.T, c Container, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	var w io.WriteCloser
	var err error
	switch c {
	case ContainerGzip, ContainerTarGz:
		w = gzip.NewWriter(&buf)
	case ContainerXz, ContainerTarXz:
		w, err = xz.NewWriter(&buf)
	case ContainerZstd, ContainerTarZstd:
		w, err = zstd.NewWriter(&buf)
	default:
		t.Fatalf("cannot compress as %s", c)
	}
	if err != nil {
		t.Fatalf("%s writer failed: %v", c, err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatalf("%s Write failed: %v", c, err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("%s Close failed: %v", c, err)
	}
	return buf.Bytes()
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

func TestDetectContainer(t *testing.T) {
	tests := []struct {
		name string
		want Container
	}{
		{"disk.td0", ContainerTD0},
		{"DISK.TD0", ContainerTD0},
		{"disk.td0.gz", ContainerGzip},
		{"disk.td0.xz", ContainerXz},
		{"disk.td0.zst", ContainerZstd},
		{"set.zip", ContainerZip},
		{"set.tar", ContainerTar},
		{"set.tar.gz", ContainerTarGz},
		{"set.TGZ", ContainerTarGz},
		{"set.tar.xz", ContainerTarXz},
		{"set.txz", ContainerTarXz},
		{"set.tar.zst", ContainerTarZstd},
		{"set.tzst", ContainerTarZstd},
		{"notes.txt", ContainerUnknown},
		{"README", ContainerUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectContainer(tt.name); got != tt.want {
				t.Errorf("DetectContainer(%q) = %s, want %s", tt.name, got, tt.want)
			}
		})
	}
}

func TestSniff(t *testing.T) {
	tarred := tarData(t, file{"a.td0", emptyImage})
	tests := []struct {
		name string
		data []byte
		want Container
	}{
		{"td0", emptyImage, ContainerTD0},
		{"advanced", []byte("td\x00\x00"), ContainerTD0},
		{"zip", zipData(t, file{"a.td0", emptyImage}), ContainerZip},
		{"gzip", compress(t, ContainerGzip, emptyImage), ContainerGzip},
		{"xz", compress(t, ContainerXz, emptyImage), ContainerXz},
		{"zstd", compress(t, ContainerZstd, emptyImage), ContainerZstd},
		{"tar", tarred, ContainerTar},
		{"text", []byte("hello world"), ContainerUnknown},
		{"empty", nil, ContainerUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sniff(tt.data); got != tt.want {
				t.Errorf("Sniff() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestMembers(t *testing.T) {
	image := loadImage(t, "cpm-normal.td0")
	plainTar := tarData(t,
		file{"disks/a.td0", image},
		file{"disks/readme.txt", []byte("not an image")},
		file{"disks/B.TD0", emptyImage},
	)
	tests := []struct {
		filename string
		data     []byte
		want     []string
	}{
		{"disk.td0", image, []string{"disk.td0"}},
		{"disk.td0.gz", compress(t, ContainerGzip, image), []string{"disk.td0.gz / disk.td0"}},
		{"disk.td0.xz", compress(t, ContainerXz, image), []string{"disk.td0.xz / disk.td0"}},
		{"disk.td0.zst", compress(t, ContainerZstd, image), []string{"disk.td0.zst / disk.td0"}},
		{"notes.txt.gz", compress(t, ContainerGzip, []byte("text")), nil},
		{"set.zip", zipData(t, file{"one.td0", image}, file{"skip.doc", nil}, file{"two.td0", emptyImage}),
			[]string{"set.zip / one.td0", "set.zip / two.td0"}},
		{"set.tar", plainTar, []string{"set.tar / disks/a.td0", "set.tar / disks/B.TD0"}},
		{"set.tar.gz", compress(t, ContainerTarGz, plainTar), []string{"set.tar.gz / disks/a.td0", "set.tar.gz / disks/B.TD0"}},
		{"set.tar.xz", compress(t, ContainerTarXz, plainTar), []string{"set.tar.xz / disks/a.td0", "set.tar.xz / disks/B.TD0"}},
		{"set.tar.zst", compress(t, ContainerTarZstd, plainTar), []string{"set.tar.zst / disks/a.td0", "set.tar.zst / disks/B.TD0"}},
		{"unnamed", image, []string{"unnamed"}},
		{"unnamed.bin", []byte("garbage"), nil},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			var got []string
			err := Members(tt.filename, tt.data, func(m Member) error {
				got = append(got, m.Path())
				if len(m.Data) == 0 {
					t.Errorf("member %s has no data", m.Path())
				}
				return nil
			})
			if err != nil {
				t.Fatalf("Members() failed: %v", err)
			}
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("Members() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMembersData(t *testing.T) {
	image := loadImage(t, "cpm-advanced.td0")
	var got []byte
	err := Members("x.tar.xz", compress(t, ContainerTarXz, tarData(t, file{"x.td0", image})), func(m Member) error {
		got = m.Data
		if m.Container != ContainerTarXz {
			t.Errorf("Container = %s, want %s", m.Container, ContainerTarXz)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Members() failed: %v", err)
	}
	if !bytes.Equal(got, image) {
		t.Errorf("member data differs from the archived image")
	}
}

func TestMembersErrors(t *testing.T) {
	tests := []struct {
		filename string
		data     []byte
	}{
		{"broken.zip", []byte("PK\x03\x04 truncated")},
		{"broken.td0.gz", []byte{0x1f, 0x8b, 0x08}},
		{"broken.tar.xz", []byte("not xz at all")},
		{"broken.tar", bytes.Repeat([]byte{'x'}, 1024)},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			err := Members(tt.filename, tt.data, func(Member) error { return nil })
			if err == nil {
				t.Fatal("Members() succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.filename) {
				t.Errorf("error %q does not name the file", err)
			}
		})
	}
}

func TestMembersCallbackError(t *testing.T) {
	stop := fmt.Errorf("stop")
	calls := 0
	data := zipData(t, file{"a.td0", emptyImage}, file{"b.td0", emptyImage})
	err := Members("set.zip", data, func(Member) error {
		calls++
		return stop
	})
	if err != stop {
		t.Errorf("Members() error = %v, want %v", err, stop)
	}
	if calls != 1 {
		t.Errorf("callback ran %d times, want 1", calls)
	}
}

func TestWalk(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.td0", emptyImage)
	writeFile(t, dir, "a.td0", emptyImage)
	writeFile(t, dir, "notes.txt", []byte("skip"))
	writeFile(t, dir, "sub/c.zip", zipData(t, file{"c.td0", emptyImage}))
	single := writeFile(t, t.TempDir(), "image.bin", emptyImage)

	var got []string
	err := Walk([]string{dir, single}, func(path string) error {
		got = append(got, path)
		return nil
	})
	if err != nil {
		t.Fatalf("Walk() failed: %v", err)
	}
	want := []string{
		filepath.Join(dir, "a.td0"),
		filepath.Join(dir, "b.td0"),
		filepath.Join(dir, "sub", "c.zip"),
		single,
	}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("Walk() = %q, want %q", got, want)
	}
}

func TestWalkMissingRoot(t *testing.T) {
	err := Walk([]string{filepath.Join(t.TempDir(), "missing")}, func(string) error { return nil })
	if err == nil || !strings.Contains(err.Error(), "failed to stat") {
		t.Errorf("Walk() error = %v, want stat failure", err)
	}
}

// sampleTree creates a directory with images in every container
func sampleTree(t *testing.T) (string, []string) {
	t.Helper()
	normal := loadImage(t, "cpm-normal.td0")
	advanced := loadImage(t, "cpm-advanced.td0")
	dir := t.TempDir()

	writeFile(t, dir, "a.td0", normal)
	writeFile(t, dir, "b.zip", zipData(t, file{"x.td0", advanced}, file{"readme.txt", []byte("hi")}))
	writeFile(t, dir, "bad.td0", []byte("XX\x00\x00\x15\x02\x03\x01\x00\x01\x00\x00"))
	writeFile(t, dir, "c.tar.gz", compress(t, ContainerTarGz, tarData(t, file{"y.td0", emptyImage})))
	writeFile(t, dir, "d.tar.xz", compress(t, ContainerTarXz, tarData(t, file{"z.td0", normal})))
	writeFile(t, dir, "e.td0.gz", compress(t, ContainerGzip, advanced))
	writeFile(t, dir, "f.txt", []byte("ignored"))

	want := []string{
		filepath.Join(dir, "a.td0") + ": pcw-plus3",
		filepath.Join(dir, "b.zip") + " / x.td0: pcw-plus3",
		filepath.Join(dir, "bad.td0") + ": BadSignature",
		filepath.Join(dir, "c.tar.gz") + " / y.td0: NoDirectoryFound",
		filepath.Join(dir, "d.tar.xz") + " / z.td0: pcw-plus3",
		filepath.Join(dir, "e.td0.gz") + " / e.td0: pcw-plus3",
	}
	return dir, want
}

func TestScan(t *testing.T) {
	dir, want := sampleTree(t)

	for _, workers := range []int{1, 3, 8} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			var out bytes.Buffer
			s := &Scanner{Workers: workers, Out: &out}
			sum, err := s.Scan([]string{dir})
			if err != nil {
				t.Fatalf("Scan() failed: %v", err)
			}
			got := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
			if strings.Join(got, "\n") != strings.Join(want, "\n") {
				t.Errorf("Scan() output:\n%s\nwant:\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
			}
			if sum.Files != 6 || sum.Found != 4 || sum.Failed != 1 {
				t.Errorf("Summary = %+v, want 6 files, 4 found, 1 failed", sum)
			}
		})
	}
}

func TestScanWholeReports(t *testing.T) {
	dir := t.TempDir()
	normal := loadImage(t, "cpm-normal.td0")
	const count = 24
	for i := 0; i < count; i++ {
		writeFile(t, dir, fmt.Sprintf("disk%02d.td0", i), normal)
	}

	// Each report is several writes; a mixed output would break the blocks apart
	render := func(w io.Writer, r *analyze.Report) {
		fmt.Fprintf(w, "begin %s\n", filepath.Base(r.Path))
		for _, f := range r.Catalog {
			fmt.Fprintf(w, "  %s\n", f.Name)
		}
		fmt.Fprintf(w, "end %s\n", filepath.Base(r.Path))
	}

	var out bytes.Buffer
	s := &Scanner{Workers: 6, Out: &out, Render: render}
	if _, err := s.Scan([]string{dir}); err != nil {
		t.Fatalf("Scan() failed: %v", err)
	}

	var want bytes.Buffer
	for i := 0; i < count; i++ {
		name := fmt.Sprintf("disk%02d.td0", i)
		fmt.Fprintf(&want, "begin %s\n  HELLO.TXT\n  README.DOC\n  GAME.COM\nend %s\n", name, name)
	}
	if out.String() != want.String() {
		t.Errorf("Scan() output:\n%s\nwant:\n%s", out.String(), want.String())
	}
}

func TestScanDuplicateRoots(t *testing.T) {
	dir, want := sampleTree(t)
	var out bytes.Buffer
	s := &Scanner{Workers: 2, Out: &out}
	sum, err := s.Scan([]string{dir, dir + string(filepath.Separator)})
	if err != nil {
		t.Fatalf("Scan() failed: %v", err)
	}
	if sum.Files != len(want) {
		t.Errorf("Files = %d, want %d", sum.Files, len(want))
	}
}

func TestScanReadError(t *testing.T) {
	dir, _ := sampleTree(t)
	var out bytes.Buffer
	s := &Scanner{Workers: 2, Out: &out}
	_, err := s.Scan([]string{dir, filepath.Join(dir, "missing")})
	if err == nil {
		t.Fatal("Scan() succeeded, want error")
	}
	// Reports of the first root are still written
	if n := strings.Count(out.String(), "\n"); n != 6 {
		t.Errorf("got %d report lines before the error, want 6", n)
	}
}

func TestScanLogging(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.td0", emptyImage)
	writeFile(t, dir, "b.zip", zipData(t, file{"b.td0", emptyImage}))

	logger, hook := test.NewNullLogger()
	logger.SetLevel(log.DebugLevel)
	s := &Scanner{Workers: 1, Out: io.Discard, Log: logger}
	if _, err := s.Scan([]string{dir}); err != nil {
		t.Fatalf("Scan() failed: %v", err)
	}

	containers := map[string]string{}
	for _, e := range hook.AllEntries() {
		if e.Message == "queued" {
			containers[e.Data["file"].(string)] = e.Data["container"].(string)
		}
	}
	if got := containers[filepath.Join(dir, "a.td0")]; got != "TD0" {
		t.Errorf("container of a.td0 = %q, want TD0", got)
	}
	if got := containers[filepath.Join(dir, "b.zip")+" / b.td0"]; got != "ZIP" {
		t.Errorf("container of b.td0 = %q, want ZIP", got)
	}
}

func TestSummaryString(t *testing.T) {
	sum := Summary{Files: 3, Failed: 1, Found: 2}
	want := "3 files, 2 with CP/M directory, 1 failed"
	if got := sum.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
