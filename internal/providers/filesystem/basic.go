package filesystem

import (
	"context"
	"encoding/base64"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"

	"github.com/GriffinCanCode/fsorch/internal/domain/mutation"
	"github.com/GriffinCanCode/fsorch/internal/shared/types"
)

func (p *Provider) read(ctx context.Context, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	raw, ok := stringParam(params, "path")
	if !ok {
		return invalidParams("path parameter required")
	}
	abs, err := resolvePath(raw, appCtx)
	if err != nil {
		return invalidParams(err.Error())
	}

	data, err := p.exec.Read(ctx, abs)
	if err != nil {
		return errorResult(err)
	}

	content, encoding := string(data), "utf8"
	if !utf8.Valid(data) {
		content, encoding = base64.StdEncoding.EncodeToString(data), "base64"
	}

	return Success(map[string]interface{}{
		"path":      abs,
		"content":   content,
		"encoding":  encoding,
		"size":      len(data),
		"mime_type": mimetype.Detect(data).String(),
		"hash":      p.hasher.Digest(data),
	})
}

// mutate runs a single operation outside any transaction. Nothing is
// captured, so a failure leaves whatever the primitive left behind.
func (p *Provider) mutate(ctx context.Context, kind mutation.Kind, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	d, err := fillDescriptor(mutation.Descriptor{Kind: kind}, params, appCtx)
	if err != nil {
		return errorResult(err)
	}

	if err := p.exec.Execute(ctx, d); err != nil {
		return errorResult(err)
	}

	data := map[string]interface{}{"path": d.Path}
	switch kind {
	case mutation.KindWrite:
		data["written"] = true
		data["size"] = len(d.Content)
	case mutation.KindUpdate:
		data["updated"] = true
	case mutation.KindDelete:
		data["deleted"] = true
	case mutation.KindMove:
		data["moved"] = true
		data["source"] = d.Path
		data["destination"] = d.Destination
	case mutation.KindCopy:
		data["copied"] = true
		data["source"] = d.Path
		data["destination"] = d.Destination
	}
	return Success(data)
}
