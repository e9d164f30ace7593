// Package catalog reads the list of native functions a caller may invoke and
// turns it into a marshal.Table.
//
// A catalog is a YAML document:
//
//	native_prefix: Z3_
//	errors:
//	  code: Z3_get_error_code
//	  message: Z3_get_error_msg
//	functions:
//	  - name: z3.Native.mkContext
//	    params: [handle]
//	    return: handle_checked
//	  - name: z3.Native.getVersion
//	    native: Z3_get_full_version
//	    params: ["array:u32:out"]
//	    return: void
package catalog

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-viper/mapstructure/v2"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/otelwasm/wasmcall/marshal"
)

// ErrInvalidCatalog is returned when a catalog document is malformed.
var ErrInvalidCatalog = errors.New("invalid catalog")

// Catalog is the decoded form of a catalog document.
type Catalog struct {
	// NativePrefix is prepended to derived native names.
	NativePrefix string `mapstructure:"native_prefix" yaml:"native_prefix,omitempty"`
	// Errors are the accessors of every function whose first parameter is a
	// handle. Functions may override them.
	Errors    marshal.ErrorAccessors `mapstructure:"errors" yaml:"errors,omitempty"`
	Functions []Function             `mapstructure:"functions" yaml:"functions"`
}

// Function is one catalog entry.
type Function struct {
	Name string `mapstructure:"name" yaml:"name"`
	// Native overrides the derived native name.
	Native string                 `mapstructure:"native" yaml:"native,omitempty"`
	Params []marshal.ParamSpec    `mapstructure:"params" yaml:"params,flow"`
	Return marshal.ReturnStrategy `mapstructure:"return" yaml:"return"`
	// Errors overrides the catalog accessors.
	Errors marshal.ErrorAccessors `mapstructure:"errors" yaml:"errors,omitempty"`
	// NoErrors disables error accessors for this function.
	NoErrors bool `mapstructure:"no_errors" yaml:"no_errors,omitempty"`
}

// Load reads and parses the catalog at path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: cannot read %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog: %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes a catalog document. Unknown keys are rejected.
func Parse(data []byte) (*Catalog, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}

	var c Catalog
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:  mapstructure.TextUnmarshallerHookFunc(),
		ErrorUnused: true,
		Result:      &c,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}
	return &c, nil
}

// Marshal encodes c as YAML.
func (c *Catalog) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// accessors returns the error accessors that apply to fn, given the defaults
// of the loaded library.
func (c *Catalog) accessors(fn Function, defaults marshal.ErrorAccessors) marshal.ErrorAccessors {
	switch {
	case fn.NoErrors:
		return marshal.ErrorAccessors{}
	case !fn.Errors.IsZero():
		return fn.Errors
	case len(fn.Params) == 0 || fn.Params[0].Kind != marshal.KindHandle:
		return marshal.ErrorAccessors{}
	case !c.Errors.IsZero():
		return c.Errors
	default:
		return defaults
	}
}

// Descriptors builds one descriptor per function. defaults are the error
// accessors used when neither the catalog nor the function names any. Every
// invalid function is reported.
func (c *Catalog) Descriptors(defaults marshal.ErrorAccessors) ([]*marshal.Descriptor, error) {
	var errs error
	descs := make([]*marshal.Descriptor, 0, len(c.Functions))
	for i, fn := range c.Functions {
		if fn.Name == "" {
			errs = multierr.Append(errs, fmt.Errorf("%w: function %d has no name", ErrInvalidCatalog, i))
			continue
		}
		native := fn.Native
		if native == "" {
			native = marshal.NativeName(c.NativePrefix, fn.Name)
		}
		d, err := marshal.NewDescriptor(fn.Name, fn.Return, fn.Params,
			marshal.WithNative(native),
			marshal.WithErrorAccessors(c.accessors(fn, defaults)))
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		descs = append(descs, d)
	}
	if errs != nil {
		return nil, errs
	}
	return descs, nil
}

// Table builds the descriptor table of c.
func (c *Catalog) Table(defaults marshal.ErrorAccessors) (*marshal.Table, error) {
	descs, err := c.Descriptors(defaults)
	if err != nil {
		return nil, err
	}
	return marshal.NewTable(descs...)
}
