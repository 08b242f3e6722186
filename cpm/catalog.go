package cpm

import (
	"sort"
)

const (
	// RecordSize is the CP/M logical record length
	RecordSize = 128

	// Records in one 16K logical extent
	RecordsPerExtent = 128
)

// File merges all extents of one file, as listed by the CAT command
type File struct {
	User     uint8
	Name     string // NAME.EXT
	Extents  int
	Records  int // records up to the end of the last logical extent
	Blocks   []int
	ReadOnly bool
	System   bool
}

// Size returns the file length rounded up to whole records
func (f *File) Size() int {
	return f.Records * RecordSize
}

// Catalog groups used entries by user and filename,
// sorted by user, then alphabetically.
func Catalog(entries []Entry) []File {
	type fileKey struct {
		user uint8
		name string
	}
	index := make(map[fileKey]int)
	var files []File

	// Extents in ascending order so block lists follow the file
	used := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if !e.Empty {
			used = append(used, e)
		}
	}
	sort.SliceStable(used, func(i, j int) bool {
		return used[i].Extent < used[j].Extent
	})

	for _, e := range used {
		key := fileKey{user: e.Status, name: e.Filename()}
		i, ok := index[key]
		if !ok {
			i = len(files)
			index[key] = i
			files = append(files, File{User: e.Status, Name: key.name})
		}
		f := &files[i]
		f.Extents++
		f.Records = max(f.Records, e.Extent*RecordsPerExtent+e.Records)
		f.Blocks = append(f.Blocks, e.Blocks...)
		f.ReadOnly = f.ReadOnly || e.ReadOnly
		f.System = f.System || e.System
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].User != files[j].User {
			return files[i].User < files[j].User
		}
		return files[i].Name < files[j].Name
	})
	return files
}
