package rest

import (
	"fmt"
	"os"

	"github.com/dmitrijs2005/bodypace/internal/filex"
)

// WriteOpenAPI renders the OpenAPI document as YAML into path, creating the
// parent directory as needed.
func (s *HTTPServer) WriteOpenAPI(path string) error {
	b, err := s.api.OpenAPI().YAML()
	if err != nil {
		return fmt.Errorf("render openapi: %w", err)
	}

	if err := filex.EnsureParentDir(path); err != nil {
		return err
	}

	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write openapi: %w", err)
	}

	return nil
}
