// Package wit implements spec.md §4.11: the state serializer, the message
// and query routers that sit on top of internal/resolver, and the
// prototype actor convention.
package wit

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/smartcomputer-ai/agent-os-sub000/internal/core"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/gritstore"
	"github.com/vmihailenco/msgpack/v5"
)

// SaveState walks state's exported, non-callable fields and stores each one
// under core/state/<field> as an opaque MessagePack-encoded blob. A field
// tagged `wit:"-"` is skipped.
func SaveState(ctx context.Context, c *core.Core, state any) error {
	v := reflect.ValueOf(state)
	for v.Kind() == reflect.Pointer {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return fmt.Errorf("wit: state must be a struct, got %s", v.Kind())
	}

	stateTree, err := c.MakeTree(ctx, core.NodeState)
	if err != nil {
		return err
	}

	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() || isSkipped(field) {
			continue
		}

		fv := v.Field(i)
		if fv.Kind() == reflect.Func || fv.Kind() == reflect.Chan {
			continue
		}

		data, err := msgpack.Marshal(fv.Interface())
		if err != nil {
			return fmt.Errorf("wit: encoding state field %q: %w", field.Name, err)
		}

		name := stateFieldName(field)
		b, err := stateTree.MakeBlob(ctx, name)
		if err != nil {
			return err
		}
		b.SetBytes(data)
	}
	return nil
}

// LoadState is the inverse of SaveState: it populates state's exported
// fields from core/state/<field> blobs, leaving fields absent from the core
// untouched.
func LoadState(ctx context.Context, c *core.Core, state any) error {
	v := reflect.ValueOf(state)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("wit: LoadState requires a pointer to struct")
	}
	v = v.Elem()

	stateTree, err := c.GetTree(ctx, core.NodeState)
	if err != nil {
		return err
	}
	if stateTree == nil {
		return nil
	}

	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() || isSkipped(field) {
			continue
		}

		name := stateFieldName(field)
		b, err := stateTree.GetBlob(ctx, name)
		if err != nil {
			return err
		}
		if b == nil {
			continue
		}

		data, err := b.AsBytes(ctx)
		if err != nil {
			return err
		}

		fv := v.Field(i)
		target := reflect.New(fv.Type())
		if err := msgpack.Unmarshal(data, target.Interface()); err != nil {
			return fmt.Errorf("wit: decoding state field %q: %w", field.Name, err)
		}
		fv.Set(target.Elem())
	}
	return nil
}

// PersistState saves state into c and persists every dirty blob/tree it
// touched, returning a copy of c's persisted tree object.
func PersistState(
	ctx context.Context, c *core.Core, store gritstore.Store, state any,
) (core.TreeObject, error) {

	if err := SaveState(ctx, c, state); err != nil {
		return core.TreeObject{}, err
	}
	if _, err := c.Persist(ctx, store); err != nil {
		return core.TreeObject{}, err
	}
	return *c.TreeObject, nil
}

func isSkipped(field reflect.StructField) bool {
	tag := field.Tag.Get("wit")
	return tag == "-"
}

func stateFieldName(field reflect.StructField) string {
	if tag := field.Tag.Get("wit"); tag != "" {
		name, _, _ := strings.Cut(tag, ",")
		if name != "" {
			return name
		}
	}
	return field.Name
}
