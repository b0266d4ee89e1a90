//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Compiles the GLSL shader sources into the SPIR-V artifacts the renderer
// loads at startup.
func (Build) Shaders() error {
	return buildShaders()
}

// Builds the demo binary.
func (Build) Binary() error {
	if err := buildShaders(); err != nil {
		return err
	}
	if _, err := executeCmd("go", withArgs("build", "-o", "aquila", "."), withStream()); err != nil {
		return err
	}
	return nil
}

func buildShaders() error {
	if _, err := executeCmd("glslc", withArgs("assets/shaders/triangle.vert", "-o", "assets/shaders/triangle.vert.spv"), withStream()); err != nil {
		return err
	}
	if _, err := executeCmd("glslc", withArgs("assets/shaders/triangle.frag", "-o", "assets/shaders/triangle.frag.spv"), withStream()); err != nil {
		return err
	}
	return nil
}
