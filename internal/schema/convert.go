package schema

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"dataprep/pkg/records"
)

// Diagram placement of the first table.
const (
	tableOriginX = 100
	tableOriginY = 100
)

// MetadataToSchema renders meta as a single-table VisualSchema. Table and
// column ids are fresh random UUIDs.
func MetadataToSchema(meta Metadata) VisualSchema {
	cols := make([]VisualColumn, len(meta.Columns))
	for i, c := range meta.Columns {
		cols[i] = VisualColumn{
			ID:         uuid.NewString(),
			Name:       c.Name,
			Type:       c.Type,
			Nullable:   c.Nullable,
			PrimaryKey: c.PrimaryKey,
			Unique:     c.Unique,
		}
	}
	return VisualSchema{
		Name: meta.TableName,
		Tables: []Table{{
			ID:      uuid.NewString(),
			Name:    meta.TableName,
			X:       tableOriginX,
			Y:       tableOriginY,
			Columns: cols,
		}},
		Relationships: []Relationship{},
	}
}

// JSONToSchema is JSONToMetadata rendered as a VisualSchema.
func JSONToSchema(doc any) (VisualSchema, error) {
	meta, err := JSONToMetadata(doc)
	if err != nil {
		return VisualSchema{}, err
	}
	return MetadataToSchema(meta), nil
}

// AutoConvertToMetadata picks a parser from filename: .json and .js are
// parsed as JSON, .xml as XML. Any other name tries JSON first and falls
// back to XML when the content is not valid JSON. Content that is neither
// yields an *UnsupportedFormatError.
func AutoConvertToMetadata(content []byte, filename string) (Metadata, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json", ".js":
		doc, err := records.DecodeJSON(content)
		if err != nil {
			return Metadata{}, &InvalidInputError{Reason: "malformed JSON", Err: err}
		}
		return JSONToMetadata(doc)
	case ".xml":
		return XMLToMetadata(content)
	}

	doc, jsonErr := records.DecodeJSON(content)
	if jsonErr == nil {
		return JSONToMetadata(doc)
	}
	meta, xmlErr := XMLToMetadata(content)
	if xmlErr != nil {
		return Metadata{}, &UnsupportedFormatError{Filename: filename, JSONErr: jsonErr, XMLErr: xmlErr}
	}
	return meta, nil
}

// AutoConvertToSchema is AutoConvertToMetadata rendered as a VisualSchema.
func AutoConvertToSchema(content []byte, filename string) (VisualSchema, error) {
	meta, err := AutoConvertToMetadata(content, filename)
	if err != nil {
		return VisualSchema{}, err
	}
	return MetadataToSchema(meta), nil
}
