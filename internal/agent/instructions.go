package agent

import (
	"fmt"
	"os"
	"strings"
)

const fontFileIDPlaceholder = "{font_file_id}"

// LoadInstructions reads the agent instructions and substitutes {font_file_id} when an
// id is known. Without one the placeholder is left as written.
func LoadInstructions(path, fontFileID string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read instructions file %s: %w", path, err)
	}

	instructions := strings.ToValidUTF8(string(data), "")
	if strings.TrimSpace(instructions) == "" {
		return "", fmt.Errorf("instructions file %s is empty", path)
	}
	if fontFileID != "" {
		instructions = strings.ReplaceAll(instructions, fontFileIDPlaceholder, fontFileID)
	}
	return instructions, nil
}
