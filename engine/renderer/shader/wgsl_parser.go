package shader

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// wgslUniformTypeMap maps WGSL uniform type spellings to their UniformType.
// Both the long form (vec2<f32>) and the predeclared alias (vec2f) are accepted.
var wgslUniformTypeMap = map[string]UniformType{
	"f32":         UniformFloat,
	"i32":         UniformInt,
	"u32":         UniformUint,
	"vec2<f32>":   UniformVec2,
	"vec2f":       UniformVec2,
	"vec3<f32>":   UniformVec3,
	"vec3f":       UniformVec3,
	"vec4<f32>":   UniformVec4,
	"vec4f":       UniformVec4,
	"mat2x2<f32>": UniformMat2,
	"mat2x2f":     UniformMat2,
	"mat3x3<f32>": UniformMat3,
	"mat3x3f":     UniformMat3,
	"mat4x4<f32>": UniformMat4,
	"mat4x4f":     UniformMat4,
}

var (
	// vertexEntryRegex matches @vertex functions and captures the entry point name
	vertexEntryRegex = regexp.MustCompile(`(?s)@vertex\b.*?\bfn\s+(\w+)`)

	// fragmentEntryRegex matches @fragment functions and captures the entry point name
	fragmentEntryRegex = regexp.MustCompile(`(?s)@fragment\b.*?\bfn\s+(\w+)`)

	// bindingRegex matches group 0 binding declarations and captures the
	// binding index, the optional address space, the variable name, and the type.
	bindingRegex = regexp.MustCompile(`@group\(0\)\s*@binding\((\d+)\)\s*var(?:<(\w+)>)?\s+(\w+)\s*:\s*([^;]+);`)
)

// parseEntryPoint finds the function name annotated with the given stage
// attribute (@vertex or @fragment).
func parseEntryPoint(source, stage string) (string, error) {
	re := vertexEntryRegex
	if stage == "@fragment" {
		re = fragmentEntryRegex
	}
	m := re.FindStringSubmatch(source)
	if m == nil {
		return "", fmt.Errorf("no %s entry point found", stage)
	}
	return m[1], nil
}

// parseParams extracts the group 0 binding declarations into Params sorted by
// binding index. Textures must be texture_2d<f32>, samplers plain sampler,
// and uniforms one of the supported scalar/vector/matrix types.
func parseParams(source string) ([]Param, error) {
	matches := bindingRegex.FindAllStringSubmatch(source, -1)
	params := make([]Param, 0, len(matches))
	for _, m := range matches {
		binding, err := strconv.ParseUint(m[1], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid binding index %q: %w", m[1], err)
		}
		addressSpace := m[2]
		name := m[3]
		typeName := strings.TrimSpace(m[4])

		p := Param{Name: name, Binding: uint32(binding)}
		switch {
		case typeName == "sampler":
			p.Kind = ParamSampler
		case strings.HasPrefix(typeName, "texture_2d"):
			p.Kind = ParamTexture
		default:
			if addressSpace != "uniform" {
				return nil, fmt.Errorf("binding %d (%s): unsupported declaration %q", binding, name, typeName)
			}
			ut, ok := wgslUniformTypeMap[typeName]
			if !ok {
				return nil, fmt.Errorf("binding %d (%s): unsupported uniform type %q", binding, name, typeName)
			}
			p.Kind = ParamUniform
			p.Uniform = ut
		}
		params = append(params, p)
	}

	sort.Slice(params, func(i, j int) bool {
		return params[i].Binding < params[j].Binding
	})
	for i := 1; i < len(params); i++ {
		if params[i].Binding == params[i-1].Binding {
			return nil, fmt.Errorf("duplicate binding index %d", params[i].Binding)
		}
	}
	return params, nil
}

// stripComments removes line and block comments so declarations inside
// commented-out code are not picked up.
func stripComments(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))
	for i := 0; i < len(source); {
		if strings.HasPrefix(source[i:], "//") {
			end := strings.IndexByte(source[i:], '\n')
			if end < 0 {
				break
			}
			i += end
			continue
		}
		if strings.HasPrefix(source[i:], "/*") {
			depth := 1
			i += 2
			// WGSL block comments nest.
			for i < len(source) && depth > 0 {
				if strings.HasPrefix(source[i:], "/*") {
					depth++
					i += 2
				} else if strings.HasPrefix(source[i:], "*/") {
					depth--
					i += 2
				} else {
					i++
				}
			}
			continue
		}
		sb.WriteByte(source[i])
		i++
	}
	return sb.String()
}
