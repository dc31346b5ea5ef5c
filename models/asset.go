package models

import "time"

// AssetTypeImage is the registry type for logo images.
const AssetTypeImage = "image"

// AssetSourceWebsiteImport marks assets pulled from a scanned website.
const AssetSourceWebsiteImport = "website-import"

// UploadInput is a byte buffer handed to asset storage.
type UploadInput struct {
	OwnerID     string
	FileName    string
	Buffer      []byte
	ContentType string
	Metadata    map[string]string
}

// StoredObject is where asset storage put an upload.
type StoredObject struct {
	URL string `json:"url" yaml:"url"`
	Key string `json:"key" yaml:"key"`
}

// AssetVariant is one stored rendition of an asset.
type AssetVariant struct {
	Name string `json:"name" yaml:"name"`
	URL  string `json:"url" yaml:"url"`
	Key  string `json:"key" yaml:"key"`
}

// AssetRecord is what the registry persists about an uploaded asset.
type AssetRecord struct {
	OwnerID      string         `json:"ownerId" yaml:"owner_id"`
	Type         string         `json:"type" yaml:"type"`
	MimeType     string         `json:"mimeType" yaml:"mime_type"`
	Filename     string         `json:"filename" yaml:"filename"`
	SizeBytes    int64          `json:"sizeBytes" yaml:"size_bytes"`
	Variants     []AssetVariant `json:"variants" yaml:"variants"`
	Source       string         `json:"source" yaml:"source"`
	ImportedFrom string         `json:"importedFrom" yaml:"imported_from"`
}

// Asset is a registered asset with its stable identifier.
type Asset struct {
	ID string `json:"id" yaml:"id"`
	AssetRecord
	CreatedAt time.Time `json:"createdAt" yaml:"created_at"`
}
