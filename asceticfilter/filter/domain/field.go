package filter

import (
	"reflect"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
)

// Field identifies the entity member a predicate inspects.
type Field[T any] struct {
	name string
	typ  reflect.Type
	get  func(T) any
}

// FieldOf builds a field from a typed accessor. The name is used in errors and logs only.
func FieldOf[T, V any](name string, get func(T) V) Field[T] {
	return Field[T]{
		name: name,
		typ:  DeclaredType(reflect.TypeFor[V]()),
		get:  func(e T) any { return get(e) },
	}
}

func (f Field[T]) Name() string {
	return f.name
}

// Type is the declared value type with pointers removed, or nil when the
// type is only known per entity (interface values, paths below a map).
func (f Field[T]) Type() reflect.Type {
	return f.typ
}

func (f Field[T]) Value(entity T) any {
	return f.get(entity)
}

func (f Field[T]) isZero() bool {
	return f.get == nil
}

// DeclaredType is the type a field of type t is compared as: pointers are
// removed and interfaces give nil, meaning the type is only known per value.
func DeclaredType(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() == reflect.Interface {
		return nil
	}
	return t
}

const DefaultPathCacheSize = 256

type pathKey struct {
	typ  reflect.Type
	path string
}

type step struct {
	name  string
	index []int // nil when resolved per entity
}

type resolvedPath struct {
	typ   reflect.Type
	steps []step
}

// Resolver turns dotted paths into fields and caches the resolution per entity type.
type Resolver struct {
	cache *lru.Cache[pathKey, *resolvedPath]
}

func NewResolver(size int) (*Resolver, error) {
	if size <= 0 {
		size = DefaultPathCacheSize
	}
	cache, err := lru.New[pathKey, *resolvedPath](size)
	if err != nil {
		return nil, errors.Wrap(err, "unable to create path cache")
	}
	return &Resolver{cache: cache}, nil
}

func mustResolver(size int) *Resolver {
	r, err := NewResolver(size)
	if err != nil {
		panic(err)
	}
	return r
}

var defaultResolver = mustResolver(DefaultPathCacheSize)

// Path resolves a dotted path such as "Address.City" on T.
func Path[T any](path string) (Field[T], error) {
	return ResolvePath[T](defaultResolver, path)
}

// ResolvePath resolves each segment of path against T by exported field name,
// then json tag, then case-insensitive field name. Segments below a map or an
// interface are looked up per entity, where a missing key reads as null.
func ResolvePath[T any](r *Resolver, path string) (Field[T], error) {
	root := reflect.TypeFor[T]()
	key := pathKey{typ: root, path: path}
	rp, ok := r.cache.Get(key)
	if !ok {
		var err error
		rp, err = resolve(root, path)
		if err != nil {
			return Field[T]{}, err
		}
		r.cache.Add(key, rp)
	}
	return Field[T]{
		name: path,
		typ:  rp.typ,
		get: func(e T) any {
			return walk(reflect.ValueOf(&e).Elem(), rp.steps)
		},
	}, nil
}

func resolve(root reflect.Type, path string) (*resolvedPath, error) {
	segments := strings.Split(path, ".")
	steps := make([]step, 0, len(segments))
	t := root
	for i, name := range segments {
		if name == "" {
			return nil, errors.Wrapf(ErrFieldNotFound, "empty segment in path %q", path)
		}
		t = DeclaredType(t)
		if t == nil || t.Kind() == reflect.Map {
			if t != nil && t.Key().Kind() != reflect.String {
				return nil, errors.Wrapf(ErrFieldNotFound, "%q: map key of %s is not a string", path, t)
			}
			for _, rest := range segments[i:] {
				steps = append(steps, step{name: rest})
			}
			return &resolvedPath{steps: steps}, nil
		}
		if t.Kind() != reflect.Struct {
			return nil, errors.Wrapf(ErrFieldNotFound, "%q: %s has no field %q", path, t, name)
		}
		sf, ok := findField(t, name)
		if !ok {
			return nil, errors.Wrapf(ErrFieldNotFound, "%q: %s has no field %q", path, t, name)
		}
		steps = append(steps, step{name: name, index: sf.Index})
		t = sf.Type
	}
	return &resolvedPath{typ: DeclaredType(t), steps: steps}, nil
}

func findField(t reflect.Type, name string) (reflect.StructField, bool) {
	fields := reflect.VisibleFields(t)
	for _, sf := range fields {
		if sf.IsExported() && sf.Name == name {
			return sf, true
		}
	}
	for _, sf := range fields {
		if !sf.IsExported() {
			continue
		}
		if tag, _, _ := strings.Cut(sf.Tag.Get("json"), ","); tag != "" && tag == name {
			return sf, true
		}
	}
	for _, sf := range fields {
		if sf.IsExported() && strings.EqualFold(sf.Name, name) {
			return sf, true
		}
	}
	return reflect.StructField{}, false
}

func walk(v reflect.Value, steps []step) any {
	for _, s := range steps {
		v = indirect(v)
		if !v.IsValid() {
			return nil
		}
		if s.index != nil {
			var err error
			v, err = v.FieldByIndexErr(s.index)
			if err != nil {
				return nil
			}
			continue
		}
		switch v.Kind() {
		case reflect.Map:
			if v.Type().Key().Kind() != reflect.String {
				return nil
			}
			v = v.MapIndex(reflect.ValueOf(s.name).Convert(v.Type().Key()))
		case reflect.Struct:
			sf, ok := findField(v.Type(), s.name)
			if !ok {
				return nil
			}
			v, _ = v.FieldByIndexErr(sf.Index)
		default:
			return nil
		}
	}
	if !v.IsValid() || !v.CanInterface() {
		return nil
	}
	return v.Interface()
}

func indirect(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}
