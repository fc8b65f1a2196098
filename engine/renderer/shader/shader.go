package shader

import (
	"fmt"
	"os"
)

// ParamKind identifies what kind of resource a shader parameter binds.
type ParamKind int

const (
	// ParamTexture is a sampled 2D texture parameter.
	ParamTexture ParamKind = iota

	// ParamSampler is a sampler parameter.
	ParamSampler

	// ParamUniform is a uniform value parameter (scalar, vector, or matrix).
	ParamUniform
)

// UniformType identifies the declared type of a uniform parameter.
type UniformType int

const (
	// UniformFloat is a single f32.
	UniformFloat UniformType = iota

	// UniformInt is a single i32.
	UniformInt

	// UniformUint is a single u32.
	UniformUint

	// UniformVec2 is a vec2<f32>.
	UniformVec2

	// UniformVec3 is a vec3<f32>.
	UniformVec3

	// UniformVec4 is a vec4<f32>.
	UniformVec4

	// UniformMat2 is a mat2x2<f32>.
	UniformMat2

	// UniformMat3 is a mat3x3<f32>.
	UniformMat3

	// UniformMat4 is a mat4x4<f32>.
	UniformMat4
)

// ByteSize returns the uniform buffer size for the type per the WGSL memory
// layout rules (matrix columns are aligned like vec4 where required).
//
// Reference: https://www.w3.org/TR/WGSL/#alignment-and-size
//
// Returns:
//   - uint64: the size in bytes
func (t UniformType) ByteSize() uint64 {
	switch t {
	case UniformFloat, UniformInt, UniformUint:
		return 4
	case UniformVec2:
		return 8
	case UniformVec3:
		return 12
	case UniformVec4, UniformMat2:
		return 16
	case UniformMat3:
		return 48
	case UniformMat4:
		return 64
	default:
		return 0
	}
}

// Param is one declared shader parameter: a named binding slot of a fixed kind.
type Param struct {
	// Name is the WGSL variable name, used by callers to address the parameter.
	Name string
	// Binding is the @binding index within group 0.
	Binding uint32
	// Kind is the parameter's resource kind.
	Kind ParamKind
	// Uniform is the declared value type; only meaningful when Kind is ParamUniform.
	Uniform UniformType
}

// shader is the implementation of the Shader interface.
type shader struct {
	key           string
	source        string
	vertexEntry   string
	fragmentEntry string
	params        []Param
	paramIndex    map[string]int
}

// Shader defines the interface for a loaded and parsed WGSL shader. It exposes
// the shader's unique key, source code, entry points, and the fixed ordered
// parameter list parsed from the group 0 binding declarations. The draw core
// uses the parameter list to validate named parameter writes and to seed
// default binding sets; it never inspects the source itself.
//
// Shader identity is pointer identity: two Shader values compare equal only
// when they are the same object, which is what the draw core's per-shader
// caches key on.
type Shader interface {
	// Key retrieves the unique identifier for this shader, used for labels and lookups.
	//
	// Returns:
	//   - string: the shader's unique key
	Key() string

	// Source retrieves the WGSL shader source code.
	//
	// Returns:
	//   - string: the WGSL source code of the shader
	Source() string

	// VertexEntryPoint returns the name of the @vertex entry function.
	//
	// Returns:
	//   - string: the vertex entry point name
	VertexEntryPoint() string

	// FragmentEntryPoint returns the name of the @fragment entry function.
	//
	// Returns:
	//   - string: the fragment entry point name
	FragmentEntryPoint() string

	// Params returns the ordered parameter list declared by the shader,
	// sorted by binding index. Callers must not mutate the returned slice.
	//
	// Returns:
	//   - []Param: the declared parameters
	Params() []Param

	// Param looks up a declared parameter by name.
	//
	// Parameters:
	//   - name: the parameter name to look up
	//
	// Returns:
	//   - Param: the parameter, if found
	//   - bool: true if the parameter exists
	Param(name string) (Param, bool)
}

var _ Shader = &shader{}

// NewShader creates a Shader from WGSL source. The source must contain one
// @vertex and one @fragment entry point and may declare group 0 bindings which
// become the shader's parameter list. Panics on malformed source; shaders are
// authored assets and a parse failure is a programmer error.
//
// Parameters:
//   - key: a unique identifier for the shader, used for labels and lookups
//   - source: the WGSL source code
//
// Returns:
//   - Shader: the parsed shader
func NewShader(key, source string) Shader {
	s := &shader{key: key}
	if err := s.parseSource(source); err != nil {
		panic(fmt.Sprintf("shader: %s: %v", key, err))
	}
	return s
}

// NewShaderFromPath creates a Shader by reading WGSL source from a file.
// Panics if the file cannot be read or parsed.
//
// Parameters:
//   - key: a unique identifier for the shader
//   - path: the file path to read WGSL source from
//
// Returns:
//   - Shader: the parsed shader
func NewShaderFromPath(key, path string) Shader {
	data, err := os.ReadFile(path)
	if err != nil {
		panic(fmt.Sprintf("shader: %s: failed to read source file %q: %v", key, path, err))
	}
	return NewShader(key, string(data))
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) VertexEntryPoint() string {
	return s.vertexEntry
}

func (s *shader) FragmentEntryPoint() string {
	return s.fragmentEntry
}

func (s *shader) Params() []Param {
	return s.params
}

func (s *shader) Param(name string) (Param, bool) {
	i, ok := s.paramIndex[name]
	if !ok {
		return Param{}, false
	}
	return s.params[i], true
}

// parseSource strips comments, locates the entry points, and extracts the
// group 0 binding declarations into the ordered parameter list.
func (s *shader) parseSource(source string) error {
	s.source = source
	stripped := stripComments(source)

	var err error
	s.vertexEntry, err = parseEntryPoint(stripped, "@vertex")
	if err != nil {
		return err
	}
	s.fragmentEntry, err = parseEntryPoint(stripped, "@fragment")
	if err != nil {
		return err
	}

	s.params, err = parseParams(stripped)
	if err != nil {
		return err
	}
	s.paramIndex = make(map[string]int, len(s.params))
	for i, p := range s.params {
		if _, exists := s.paramIndex[p.Name]; exists {
			return fmt.Errorf("duplicate parameter name %q", p.Name)
		}
		s.paramIndex[p.Name] = i
	}
	return nil
}
