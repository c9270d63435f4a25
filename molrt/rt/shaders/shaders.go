package shaders

import (
	_ "embed"
)

//go:embed atoms.wgsl
var AtomsWGSL string

//go:embed box.wgsl
var BoxWGSL string

const (
	VertexEntry   = "vs_main"
	FragmentEntry = "fs_main"
)
