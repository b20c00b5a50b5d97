package filesystem

import (
	"encoding/base64"
	"fmt"
	"io/fs"
	"strconv"

	"github.com/GriffinCanCode/fsorch/internal/domain/mutation"
	"github.com/GriffinCanCode/fsorch/internal/shared/types"
	"github.com/GriffinCanCode/fsorch/internal/shared/utils"
)

func stringParam(params map[string]interface{}, name string) (string, bool) {
	s, ok := params[name].(string)
	return s, ok && s != ""
}

func boolParam(params map[string]interface{}, name string) bool {
	switch v := params[name].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	}
	return false
}

// intParam reads a JSON number. def is returned when the parameter is absent.
func intParam(params map[string]interface{}, name string, def int) (int, error) {
	switch v := params[name].(type) {
	case nil:
		return def, nil
	case float64:
		if v != float64(int(v)) {
			return 0, fmt.Errorf("%s must be an integer", name)
		}
		return int(v), nil
	case int:
		return v, nil
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("%s must be an integer", name)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%s must be an integer", name)
	}
}

// modeParam accepts a JSON number (420) or an octal string ("0644").
func modeParam(params map[string]interface{}) (fs.FileMode, error) {
	switch v := params["mode"].(type) {
	case nil:
		return 0, nil
	case float64:
		return fs.FileMode(uint32(v)).Perm(), nil
	case string:
		n, err := strconv.ParseUint(v, 8, 32)
		if err != nil {
			return 0, fmt.Errorf("mode must be an octal permission string")
		}
		return fs.FileMode(n).Perm(), nil
	default:
		return 0, fmt.Errorf("mode must be a number or an octal string")
	}
}

// contentParam reads "content", decoding it when "encoding" is base64.
func contentParam(params map[string]interface{}) ([]byte, bool, error) {
	raw, ok := params["content"].(string)
	if !ok {
		return nil, false, nil
	}

	var content []byte
	switch enc, _ := params["encoding"].(string); enc {
	case "", "utf8", "utf-8":
		content = []byte(raw)
	case "base64":
		decoded, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return nil, true, fmt.Errorf("content is not valid base64: %w", err)
		}
		content = decoded
	default:
		return nil, true, fmt.Errorf("unsupported encoding %q", enc)
	}

	if err := utils.ValidateContentSize(len(content)); err != nil {
		return nil, true, err
	}
	return content, true, nil
}

// parseDescriptor builds a descriptor from an argument bag such as
//
//	{"kind": "move", "path": "a.txt", "destination": "b.txt"}
//
// Move and copy also accept "source" in place of "path".
func parseDescriptor(params map[string]interface{}, appCtx *types.Context) (mutation.Descriptor, error) {
	kind, _ := params["kind"].(string)
	d := mutation.Descriptor{Kind: mutation.Kind(kind)}
	if !d.Kind.Valid() {
		return d, fmt.Errorf("%w: unknown kind %q", mutation.ErrInvalidDescriptor, kind)
	}
	return fillDescriptor(d, params, appCtx)
}

func fillDescriptor(d mutation.Descriptor, params map[string]interface{}, appCtx *types.Context) (mutation.Descriptor, error) {
	src, ok := stringParam(params, "path")
	if !ok && (d.Kind == mutation.KindMove || d.Kind == mutation.KindCopy) {
		src, ok = stringParam(params, "source")
	}
	if !ok {
		return d, fmt.Errorf("%w: path parameter required", mutation.ErrInvalidDescriptor)
	}
	resolved, err := resolvePath(src, appCtx)
	if err != nil {
		return d, fmt.Errorf("%w: %v", mutation.ErrInvalidDescriptor, err)
	}
	d.Path = resolved

	if d.Kind == mutation.KindMove || d.Kind == mutation.KindCopy {
		dst, ok := stringParam(params, "destination")
		if !ok {
			return d, fmt.Errorf("%w: destination parameter required", mutation.ErrInvalidDescriptor)
		}
		if d.Destination, err = resolvePath(dst, appCtx); err != nil {
			return d, fmt.Errorf("%w: %v", mutation.ErrInvalidDescriptor, err)
		}
	}

	content, hasContent, err := contentParam(params)
	if err != nil {
		return d, fmt.Errorf("%w: %v", mutation.ErrInvalidDescriptor, err)
	}

	switch d.Kind {
	case mutation.KindWrite:
		if !hasContent {
			return d, fmt.Errorf("%w: content parameter required", mutation.ErrInvalidDescriptor)
		}
		d.Content = content
		if d.Mode, err = modeParam(params); err != nil {
			return d, fmt.Errorf("%w: %v", mutation.ErrInvalidDescriptor, err)
		}
	case mutation.KindUpdate:
		d.Old, _ = params["old"].(string)
		d.New, _ = params["new"].(string)
		if d.Old == "" {
			if !hasContent {
				return d, fmt.Errorf("%w: update requires old/new or content", mutation.ErrInvalidDescriptor)
			}
			d.Content = content
		}
	}

	return d, d.Validate()
}

// parseDescriptors reads the "operations" array.
func parseDescriptors(params map[string]interface{}, appCtx *types.Context) ([]mutation.Descriptor, error) {
	raw, ok := params["operations"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: operations parameter must be an array", mutation.ErrInvalidDescriptor)
	}
	if len(raw) > utils.MaxBatchOperations {
		return nil, fmt.Errorf("%w: at most %d operations allowed", mutation.ErrInvalidDescriptor, utils.MaxBatchOperations)
	}

	out := make([]mutation.Descriptor, 0, len(raw))
	for i, item := range raw {
		op, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: operation %d must be an object", mutation.ErrInvalidDescriptor, i)
		}
		d, err := parseDescriptor(op, appCtx)
		if err != nil {
			return nil, fmt.Errorf("operation %d: %w", i, err)
		}
		out = append(out, d)
	}
	return out, nil
}
