package schema

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"dataprep/pkg/records"
)

type xmlNode struct {
	Name     string
	Text     strings.Builder
	Children []*xmlNode
}

func (n *xmlNode) child(name string) *xmlNode {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// XMLToMetadata infers table metadata from an XML document. The root's
// child elements are the rows; the first row's sub-elements define the
// columns. Cell text is inferred as a string, so numeric text is VARCHAR.
// The table name comes from an id-like column, else from the root tag.
func XMLToMetadata(content []byte) (Metadata, error) {
	root, err := parseXMLTree(content)
	if err != nil {
		return Metadata{}, err
	}
	if len(root.Children) == 0 {
		return Metadata{}, invalidInput("XML root <%s> has no row elements", root.Name)
	}

	rows := root.Children
	var names []string
	seen := map[string]struct{}{}
	for _, c := range rows[0].Children {
		if _, dup := seen[c.Name]; dup {
			continue
		}
		seen[c.Name] = struct{}{}
		names = append(names, c.Name)
	}

	fallback := PascalCase(root.Name)
	if fallback == "" {
		fallback = DefaultTableName
	}
	meta := Metadata{
		TableName: InferTableName(names, fallback),
		Columns:   make([]ColumnMetadata, 0, len(names)),
		RowCount:  len(rows),
	}
	for _, name := range names {
		values := make([]any, len(rows))
		present := make([]bool, len(rows))
		for i, r := range rows {
			if c := r.child(name); c != nil {
				values[i], present[i] = strings.TrimSpace(c.Text.String()), true
			}
		}
		meta.Columns = append(meta.Columns, inferColumn(name, values, present))
	}
	return meta, nil
}

// XMLToSchema is XMLToMetadata rendered as a VisualSchema.
func XMLToSchema(content []byte) (VisualSchema, error) {
	meta, err := XMLToMetadata(content)
	if err != nil {
		return VisualSchema{}, err
	}
	return MetadataToSchema(meta), nil
}

// XMLRows reads an XML document as a table. Each child of the root is a
// row and each of its sub-elements is a cell holding the trimmed text.
// Headers are the union of sub-element names in first-seen order; a row
// without a given element gets nil there. A repeated sub-element keeps its
// first occurrence.
func XMLRows(content []byte) (records.Dataset, error) {
	root, err := parseXMLTree(content)
	if err != nil {
		return records.Dataset{}, err
	}

	var headers []string
	seen := map[string]struct{}{}
	for _, r := range root.Children {
		for _, c := range r.Children {
			if _, ok := seen[c.Name]; !ok {
				seen[c.Name] = struct{}{}
				headers = append(headers, c.Name)
			}
		}
	}
	if headers == nil {
		headers = []string{}
	}

	rows := make([]records.Row, 0, len(root.Children))
	for _, r := range root.Children {
		var row records.Row
		for _, h := range headers {
			if c := r.child(h); c != nil {
				row.Set(h, strings.TrimSpace(c.Text.String()))
			} else {
				row.Set(h, nil)
			}
		}
		rows = append(rows, row)
	}
	return records.Dataset{Headers: headers, Rows: rows}, nil
}

// parseXMLTree reads the first root element into a tree of element names
// and character data. Attributes, comments and processing instructions are
// ignored.
func parseXMLTree(content []byte) (*xmlNode, error) {
	dec := xml.NewDecoder(bytes.NewReader(content))
	dec.Strict = true

	var (
		root  *xmlNode
		stack []*xmlNode
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &InvalidInputError{Reason: "malformed XML", Err: err}
		}
		switch t := tok.(type) {
		case xml.StartElement:
			n := &xmlNode{Name: t.Name.Local}
			if len(stack) == 0 {
				if root != nil {
					return nil, invalidInput("XML has more than one root element")
				}
				root = n
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, n)
			}
			stack = append(stack, n)
		case xml.EndElement:
			if len(stack) == 0 {
				return nil, invalidInput("unexpected </%s>", t.Name.Local)
			}
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].Text.Write(t)
			} else if len(bytes.TrimSpace(t)) > 0 {
				return nil, invalidInput("text outside the root element")
			}
		}
	}
	if root == nil {
		return nil, invalidInput("XML has no root element")
	}
	if len(stack) != 0 {
		return nil, &InvalidInputError{Reason: "malformed XML", Err: fmt.Errorf("unclosed <%s>", stack[len(stack)-1].Name)}
	}
	return root, nil
}
