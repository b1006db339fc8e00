/*
Copyright 2025 Jordi Gil.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package packagemgr

import (
	"path/filepath"

	"github.com/gobwas/glob"
)

// managerPatterns mirrors package_analyzer.py's package_manager_patterns
// table exactly (§4.3), in the same declaration order so Detect's output
// is deterministic for fixtures carrying more than one manifest kind.
var managerPatterns = []struct {
	manager  Manager
	patterns []string
}{
	{ManagerPip, []string{"requirements*.txt", "setup.py", "pyproject.toml"}},
	{ManagerNpm, []string{"package.json"}},
	{ManagerYarn, []string{"yarn.lock"}},
	{ManagerMaven, []string{"pom.xml"}},
	{ManagerGradle, []string{"build.gradle", "build.gradle.kts"}},
	{ManagerComposer, []string{"composer.json"}},
	{ManagerCargo, []string{"Cargo.toml"}},
	{ManagerNuget, []string{"*.csproj", "packages.config"}},
	{ManagerGo, []string{"go.mod"}},
	{ManagerBundler, []string{"Gemfile"}},
}

// Detect returns the set of package managers whose manifest patterns
// match the base name of at least one path in files, in managerPatterns
// order, each manager reported at most once.
func Detect(files []string) []Manager {
	var detected []Manager
	for _, mp := range managerPatterns {
		if anyMatches(files, mp.patterns) {
			detected = append(detected, mp.manager)
		}
	}
	return detected
}

func anyMatches(files []string, patterns []string) bool {
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			continue
		}
		for _, f := range files {
			if g.Match(filepath.Base(f)) {
				return true
			}
		}
	}
	return false
}

// FilesOf returns the subset of files matching one manager's manifest
// patterns, used by each manager's parser to locate its manifests.
func FilesOf(manager Manager, files []string) []string {
	var patterns []string
	for _, mp := range managerPatterns {
		if mp.manager == manager {
			patterns = mp.patterns
			break
		}
	}
	var out []string
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			continue
		}
		for _, f := range files {
			if g.Match(filepath.Base(f)) {
				out = append(out, f)
			}
		}
	}
	return out
}
