// Package remote ships units of work to a runner's /run endpoint and
// manages runner user accounts. A run response is a document; functions
// the remote side tagged "local" are invoked back on this side.
package remote

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"stof/internal/client"
	"stof/internal/engine"
	"stof/internal/pkg"
)

// PackageContentType marks a request body as a package archive.
const PackageContentType = "pkg"

// BinaryDocumentForm is the default document encoding on the wire.
const BinaryDocumentForm = "bstof"

// Runner executes files and packages on a remote runner.
type Runner struct {
	client *client.Client
	engine engine.Engine
	logger *log.Logger
	stdout io.Writer
}

// NewRunner creates a Runner. The engine decodes response documents and
// carries the callback dispatch.
func NewRunner(c *client.Client, eng engine.Engine, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{client: c, engine: eng, logger: logger, stdout: os.Stdout}
}

// SetOutput redirects where textual results are printed.
func (r *Runner) SetOutput(w io.Writer) {
	r.stdout = w
}

// Run posts the file or package directory at path to the runner. A
// directory is shipped as a transient archive with only the reserved
// install directory filtered out; a file is sent raw with its extension
// as the content type.
func (r *Runner) Run(ctx context.Context, address, path string, creds *client.Credentials) error {
	info, err := os.Stat(path)
	if err != nil {
		return client.NewRequestError(client.ErrRunFailed, fmt.Sprintf("%s: %v", path, err))
	}

	var body []byte
	var contentType string
	if info.IsDir() {
		contentType = PackageContentType
		body, err = pkg.Build(path, nil, nil)
		if err != nil {
			return err
		}
	} else {
		ext := strings.TrimPrefix(filepath.Ext(path), ".")
		if ext == "" {
			return client.NewRequestError(client.ErrRunFailed,
				fmt.Sprintf("%s: cannot determine format from extension", path))
		}
		contentType = ext
		body, err = os.ReadFile(path)
		if err != nil {
			return client.NewRequestError(client.ErrRunFailed, fmt.Sprintf("%s: %v", path, err))
		}
	}

	resp, err := r.client.Run(ctx, address, contentType, body, creds)
	if err != nil {
		return err
	}
	return r.dispatch(ctx, resp)
}

// RunDocument ships an already-parsed document in the binary form. Used
// when the unit of work was decoded locally before deciding to run it
// remotely.
func (r *Runner) RunDocument(ctx context.Context, address string, doc *engine.Document, creds *client.Credentials) error {
	body, err := r.engine.Encode(doc, BinaryDocumentForm)
	if err != nil {
		return err
	}
	resp, err := r.client.Run(ctx, address, "application/"+BinaryDocumentForm, body, creds)
	if err != nil {
		return err
	}
	return r.dispatch(ctx, resp)
}

// dispatch decodes a run response, prints textual results, and invokes
// every top-level function tagged "local". Callback failures are logged
// and dropped; a remote result must not be lost to a local side effect.
func (r *Runner) dispatch(ctx context.Context, resp *client.RunResponse) error {
	doc, err := r.engine.Decode(resp.Body, resp.ContentType)
	if err != nil {
		return client.NewRequestError(client.ErrRunFailed, fmt.Sprintf("bad response: %v", err))
	}

	if strings.Contains(resp.ContentType, "text") {
		if v, ok := doc.FieldValue("text"); ok {
			fmt.Fprintln(r.stdout, v)
		}
	}

	for _, fn := range doc.Functions() {
		if !fn.HasAttribute("local") {
			continue
		}
		if err := r.engine.Call(ctx, fn); err != nil {
			r.logger.Debug("local callback failed", "function", fn.Name, "err", err)
		}
	}
	return nil
}
