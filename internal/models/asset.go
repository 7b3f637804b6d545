package models

// AssetFile is one file found in the extracted assets archive. Filename is
// the lowercased basename; Path is absolute on disk.
type AssetFile struct {
	Filename string `json:"filename"`
	Path     string `json:"path"`
	NoteID   string `json:"note_id,omitempty"`
	Size     int64  `json:"size"`
}

// AssetIndex holds three read-only views over the extracted assets archive.
// Built once per job, then only read.
type AssetIndex struct {
	// ByFilename maps lowercased basename to one representative asset.
	// Duplicate names across directories resolve last-wins.
	ByFilename map[string]AssetFile
	// ByNoteID maps a hex note identifier (directory name) to the assets
	// found inside that directory.
	ByNoteID map[string][]AssetFile
	// Unassigned lists assets not associated with any note identifier.
	Unassigned []AssetFile
}

// NewAssetIndex returns an empty index with allocated maps.
func NewAssetIndex() *AssetIndex {
	return &AssetIndex{
		ByFilename: make(map[string]AssetFile),
		ByNoteID:   make(map[string][]AssetFile),
	}
}
