package shader

import (
	"embed"
	"fmt"
)

//go:embed glsl/*.vert glsl/*.frag
var sources embed.FS

// GLSL returns the vertex and fragment sources for a program.
func GLSL(name string) (vert, frag string, err error) {
	vs := "glsl/quad.vert"
	if name == Mesh {
		vs = "glsl/mesh.vert"
	}
	v, err := sources.ReadFile(vs)
	if err != nil {
		return "", "", fmt.Errorf("shader %s: %w", name, err)
	}
	f, err := sources.ReadFile("glsl/" + name + ".frag")
	if err != nil {
		return "", "", fmt.Errorf("shader %s: %w", name, err)
	}
	return string(v), string(f), nil
}
