// Command schema emits the JSON schema for the websocket wire messages so the
// browser client can validate frames during development.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"

	"shoulderbird/server/internal/hub"
)

func main() {
	var outPath string
	flag.StringVar(&outPath, "out", "", "path to write the JSON schema")
	flag.Parse()

	if outPath == "" {
		fmt.Fprintln(os.Stderr, "--out is required")
		os.Exit(1)
	}

	if err := writeSchema(outPath, buildSchema()); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write schema: %v\n", err)
		os.Exit(1)
	}
}

func buildSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
	}

	state := reflector.Reflect(new(hub.StateMessage))
	joined := reflector.Reflect(new(hub.JoinedMessage))
	heartbeat := reflector.Reflect(new(hub.HeartbeatMessage))
	client := reflector.Reflect(new(hub.ClientMessage))

	root := &jsonschema.Schema{
		Version:     jsonschema.Version,
		Title:       "Shoulderbird Wire Messages",
		Description: "Frames exchanged over the websocket between server and browser client.",
		OneOf: []*jsonschema.Schema{
			state,
			joined,
			heartbeat,
			client,
		},
	}
	return root
}

func writeSchema(outPath string, schema *jsonschema.Schema) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}

	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}

	return nil
}
