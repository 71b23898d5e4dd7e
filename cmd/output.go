package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
	"gopkg.in/yaml.v3"

	"github.com/pmadusud/salesagent/internal/search"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
	formatText = "text"
)

func validFormat(format string) bool {
	switch format {
	case formatJSON, formatYAML, formatText:
		return true
	}
	return false
}

func writeSearchResponse(w io.Writer, resp *search.SearchResponse, format string) error {
	switch format {
	case formatJSON:
		return writeJSON(w, resp)
	case formatYAML:
		return writeYAML(w, resp)
	case formatText:
		return writeText(w, resp)
	default:
		return fmt.Errorf("invalid format %q", format)
	}
}

func writeJSON(w io.Writer, resp *search.SearchResponse) error {
	docs, err := search.EncodeDocuments(resp.Documents)
	if err != nil {
		return fmt.Errorf("failed to encode documents: %w", err)
	}
	out := struct {
		*search.SearchResponse
		Documents json.RawMessage `json:"documents"`
	}{SearchResponse: resp, Documents: docs}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// writeYAML keeps each document's field order by building the node tree directly.
func writeYAML(w io.Writer, resp *search.SearchResponse) error {
	root := &yaml.Node{Kind: yaml.MappingNode}
	addScalar(root, "request_id", resp.RequestID, "!!str")
	addScalar(root, "search_method", string(resp.SearchMethod), "!!str")
	addScalar(root, "total_results", strconv.Itoa(resp.TotalResults), "!!int")
	addScalar(root, "search_time", resp.SearchTime, "!!str")
	if resp.FallbackReason != "" {
		addScalar(root, "fallback_reason", resp.FallbackReason, "!!str")
	}
	if resp.Error != "" {
		addScalar(root, "error", resp.Error, "!!str")
	}

	docs := &yaml.Node{Kind: yaml.SequenceNode}
	for _, doc := range resp.Documents {
		node, err := documentNode(doc)
		if err != nil {
			return err
		}
		docs.Content = append(docs.Content, node)
	}
	root.Content = append(root.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: "documents"}, docs)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return fmt.Errorf("failed to encode yaml: %w", err)
	}
	return enc.Close()
}

func addScalar(node *yaml.Node, key, value, tag string) {
	node.Content = append(node.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Value: key},
		&yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value},
	)
}

func documentNode(doc bson.D) (*yaml.Node, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, elem := range doc {
		value, err := valueNode(elem.Value)
		if err != nil {
			return nil, fmt.Errorf("failed to encode field %s: %w", elem.Key, err)
		}
		node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: elem.Key}, value)
	}
	return node, nil
}

// valueNode builds nested documents node by node; a map would lose their field order.
func valueNode(v any) (*yaml.Node, error) {
	switch val := v.(type) {
	case bson.D:
		return documentNode(val)
	case bson.A:
		node := &yaml.Node{Kind: yaml.SequenceNode}
		for _, item := range val {
			child, err := valueNode(item)
			if err != nil {
				return nil, err
			}
			node.Content = append(node.Content, child)
		}
		return node, nil
	case bson.ObjectID:
		v = val.Hex()
	}
	node := &yaml.Node{}
	if err := node.Encode(v); err != nil {
		return nil, err
	}
	return node, nil
}

func writeText(w io.Writer, resp *search.SearchResponse) error {
	if _, err := fmt.Fprintf(w, "Search method: %s (%d result(s) in %s)\n", resp.SearchMethod, resp.TotalResults, resp.SearchTime); err != nil {
		return err
	}
	if resp.FallbackReason != "" {
		_, _ = fmt.Fprintf(w, "Fallback: %s\n", resp.FallbackReason)
	}
	if resp.Error != "" {
		_, _ = fmt.Fprintf(w, "Error: %s\n", resp.Error)
	}
	if len(resp.Documents) == 0 {
		_, err := fmt.Fprintln(w, "No matching documents.")
		return err
	}

	for i, doc := range resp.Documents {
		_, _ = fmt.Fprintf(w, "\n=== Result %d ===\n", i+1)
		for _, elem := range doc {
			_, _ = fmt.Fprintf(w, "%s: %s\n", elem.Key, textValue(elem.Value))
		}
	}
	return nil
}

func textValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bson.ObjectID:
		return val.Hex()
	case nil:
		return "null"
	}
	encoded, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return strings.TrimSpace(string(encoded))
}
