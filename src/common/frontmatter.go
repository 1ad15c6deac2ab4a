package common

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	yamlDelimiter = "---"
	tomlDelimiter = "+++"
)

// Document is a markdown file with optional frontmatter. YAML frontmatter
// is kept as a yaml.Node so keys we don't know survive a rewrite
// untouched. TOML frontmatter is kept verbatim and never edited.
type Document struct {
	FilePath string

	front *yaml.Node

	// rawFront holds a TOML block including its +++ lines
	rawFront string

	Content string
}

// ParseDocument reads a markdown file and splits off its frontmatter
func ParseDocument(filePath string) (*Document, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	doc := &Document{FilePath: filePath}

	switch firstLine(data) {
	case tomlDelimiter:
		block, body, err := splitFrontmatter(data, tomlDelimiter)
		if err != nil {
			return nil, err
		}
		doc.rawFront = string(block)
		doc.Content = strings.TrimLeft(string(body), "\r\n")
		return doc, nil

	case yamlDelimiter:
		// handled below

	default:
		doc.Content = string(data)
		return doc, nil
	}

	block, body, err := splitFrontmatter(data, yamlDelimiter)
	if err != nil {
		return nil, err
	}
	inner := bytes.TrimSuffix(bytes.TrimRight(block, "\r\n"), []byte(yamlDelimiter))
	inner = inner[len(yamlDelimiter):]

	var node yaml.Node
	if err := yaml.Unmarshal(inner, &node); err != nil {
		return nil, fmt.Errorf("failed to parse frontmatter: %w", err)
	}
	if len(node.Content) == 0 {
		// "---\n---" with nothing in between
		node = yaml.Node{
			Kind:    yaml.DocumentNode,
			Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}},
		}
	}
	if node.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("invalid frontmatter: expected a mapping")
	}

	doc.front = &node
	doc.Content = strings.TrimLeft(string(body), "\r\n")

	return doc, nil
}

func firstLine(data []byte) string {
	line, _, _ := bytes.Cut(data, []byte("\n"))
	return strings.TrimRight(string(line), "\r")
}

// splitFrontmatter returns the frontmatter block, delimiter lines
// included, and the body after it. Only a line consisting of exactly
// delim closes the block.
func splitFrontmatter(data []byte, delim string) (block, body []byte, err error) {
	_, rest, _ := bytes.Cut(data, []byte("\n"))
	offset := len(data) - len(rest)

	for offset < len(data) {
		line, _, more := bytes.Cut(data[offset:], []byte("\n"))
		end := offset + len(line)
		if more {
			end++
		}

		if strings.TrimRight(string(line), "\r") == delim {
			return data[:end], data[end:], nil
		}
		offset = end
	}

	return nil, nil, fmt.Errorf("invalid frontmatter: missing closing %s delimiter", delim)
}

// CanRecordImages reports whether AddImage can edit the frontmatter.
// Documents with TOML frontmatter are left alone.
func (d *Document) CanRecordImages() bool {
	return d.rawFront == ""
}

// Images returns the frontmatter images list
func (d *Document) Images() []string {
	seq := d.imagesNode(false)
	if seq == nil {
		return nil
	}

	images := make([]string, 0, len(seq.Content))
	for _, item := range seq.Content {
		images = append(images, item.Value)
	}
	return images
}

// AddImage appends publicPath to the frontmatter images list unless it
// is already there. Reports whether the list changed.
func (d *Document) AddImage(publicPath string) bool {
	if !d.CanRecordImages() {
		return false
	}

	seq := d.imagesNode(true)
	if seq == nil {
		// images is something other than a list; leave it alone
		return false
	}
	for _, item := range seq.Content {
		if item.Value == publicPath {
			return false
		}
	}

	seq.Content = append(seq.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: publicPath})
	return true
}

// AppendMarkup adds markup as its own paragraph at the end of the content
func (d *Document) AppendMarkup(markup string) {
	body := strings.TrimRight(d.Content, "\n")
	if body == "" {
		d.Content = markup + "\n"
		return
	}
	d.Content = body + "\n\n" + markup + "\n"
}

// Write saves the document back to FilePath
func (d *Document) Write() error {
	var out bytes.Buffer

	switch {
	case d.rawFront != "":
		out.WriteString(d.rawFront)
		if !strings.HasSuffix(d.rawFront, "\n") {
			out.WriteString("\n")
		}
		out.WriteString("\n")

	case d.front != nil:
		out.WriteString(yamlDelimiter + "\n")

		enc := yaml.NewEncoder(&out)
		enc.SetIndent(2)
		if err := enc.Encode(d.front); err != nil {
			return fmt.Errorf("failed to marshal frontmatter: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("failed to marshal frontmatter: %w", err)
		}

		out.WriteString(yamlDelimiter + "\n\n")
	}
	out.WriteString(d.Content)

	if err := os.WriteFile(d.FilePath, out.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// imagesNode finds the images sequence, creating the frontmatter and the
// key when create is set
func (d *Document) imagesNode(create bool) *yaml.Node {
	mapping := d.mapping(create)
	if mapping == nil {
		return nil
	}

	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value != "images" {
			continue
		}

		value := mapping.Content[i+1]
		switch value.Kind {
		case yaml.SequenceNode:
			return value
		case yaml.ScalarNode:
			// "images: single.jpg" or a bare "images:"
			seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
			if value.ShortTag() != "!!null" {
				seq.Content = append(seq.Content, value)
			}
			if !create {
				return seq
			}
			mapping.Content[i+1] = seq
			return seq
		default:
			return nil
		}
	}

	if !create {
		return nil
	}

	seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	mapping.Content = append(mapping.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: "images"},
		seq,
	)
	return seq
}

func (d *Document) mapping(create bool) *yaml.Node {
	if d.front == nil || len(d.front.Content) == 0 {
		if !create {
			return nil
		}
		d.front = &yaml.Node{
			Kind:    yaml.DocumentNode,
			Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}},
		}
	}
	return d.front.Content[0]
}
