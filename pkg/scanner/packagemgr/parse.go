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
	"encoding/json"
	"regexp"
	"strings"

	"github.com/flowforge/pipeline-core/pkg/graph"
)

func mavenCoordNode(parts []string) graph.NodeMeta {
	name := parts[0] + ":" + parts[1]
	return graph.NodeMeta{
		Kind: graph.NodePackage,
		Attributes: map[string]any{
			"name": name, "groupId": parts[0], "artifactId": parts[1],
			"version": parts[3], "type": "maven",
		},
	}
}

// parseRequirementsTxt mirrors _parse_requirements_txt's regex exactly:
// strip comments/blank lines/option flags, then split on the first
// version-operator run.
var requirementLineRe = regexp.MustCompile(`^([^=<>~!]+)(?:[=<>~!]=?)?([^;]*)`)

func parseRequirementsTxt(content string) map[string]string {
	deps := map[string]string{}
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
			continue
		}
		m := requirementLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name := strings.TrimSpace(m[1])
		version := strings.TrimSpace(m[2])
		if name != "" {
			deps[name] = version
		}
	}
	return deps
}

type packageJSON struct {
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

func parsePackageJSON(content []byte) (packageJSON, error) {
	var pkg packageJSON
	if err := json.Unmarshal(content, &pkg); err != nil {
		return packageJSON{}, err
	}
	return pkg, nil
}

type mavenDependency struct {
	GroupID    string
	ArtifactID string
	Version    string
	Scope      string
}

var (
	mavenDependenciesBlockRe = regexp.MustCompile(`(?s)<dependencies>(.*?)</dependencies>`)
	mavenDependencyRe        = regexp.MustCompile(`(?s)<dependency>(.*?)</dependency>`)
	mavenGroupIDRe           = regexp.MustCompile(`<groupId>(.*?)</groupId>`)
	mavenArtifactIDRe        = regexp.MustCompile(`<artifactId>(.*?)</artifactId>`)
	mavenVersionRe           = regexp.MustCompile(`<version>(.*?)</version>`)
	mavenScopeRe             = regexp.MustCompile(`<scope>(.*?)</scope>`)
)

func parsePomXML(content string) []mavenDependency {
	block := mavenDependenciesBlockRe.FindStringSubmatch(content)
	if block == nil {
		return nil
	}
	var out []mavenDependency
	for _, m := range mavenDependencyRe.FindAllStringSubmatch(block[1], -1) {
		body := m[1]
		dep := mavenDependency{Scope: "compile"}
		if g := mavenGroupIDRe.FindStringSubmatch(body); g != nil {
			dep.GroupID = strings.TrimSpace(g[1])
		}
		if a := mavenArtifactIDRe.FindStringSubmatch(body); a != nil {
			dep.ArtifactID = strings.TrimSpace(a[1])
		}
		if v := mavenVersionRe.FindStringSubmatch(body); v != nil {
			dep.Version = strings.TrimSpace(v[1])
		}
		if s := mavenScopeRe.FindStringSubmatch(body); s != nil {
			dep.Scope = strings.TrimSpace(s[1])
		}
		if dep.GroupID != "" && dep.ArtifactID != "" {
			out = append(out, dep)
		}
	}
	return out
}

// parseGoMod extracts the module's direct requires (non-indirect) from
// go.mod text, without the full module-file grammar — a line-oriented
// reading of `require` blocks/statements is sufficient for this
// manager's direct-dependency-only role.
var goRequireLineRe = regexp.MustCompile(`^\s*([\w\.\-/]+)\s+(v[\w\.\-+]+)(\s*//\s*indirect)?`)

func parseGoMod(content string) map[string]string {
	deps := map[string]string{}
	inRequireBlock := false
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "require ("):
			inRequireBlock = true
			continue
		case trimmed == ")":
			inRequireBlock = false
			continue
		case strings.HasPrefix(trimmed, "require ") && !strings.Contains(trimmed, "("):
			trimmed = strings.TrimPrefix(trimmed, "require ")
		case !inRequireBlock:
			continue
		}
		if strings.Contains(line, "// indirect") {
			continue
		}
		m := goRequireLineRe.FindStringSubmatch(trimmed)
		if m == nil {
			continue
		}
		deps[m[1]] = m[2]
	}
	return deps
}

var mavenDotEdgeRe = regexp.MustCompile(`"([^"]+)"\s*->\s*"([^"]+)"`)

// parseMavenDotEdges extracts edges from `mvn dependency:tree
// -DoutputType=dot` output and merges them into result, mirroring
// _parse_maven_dependency_tree's coordinate parsing
// (groupId:artifactId:packaging:version[:scope]).
func parseMavenDotEdges(dot string, result *ScanResult) {
	for _, m := range mavenDotEdgeRe.FindAllStringSubmatch(dot, -1) {
		sourceParts := strings.Split(m[1], ":")
		targetParts := strings.Split(m[2], ":")
		if len(sourceParts) < 4 || len(targetParts) < 4 {
			continue
		}
		sourceID := "package:" + sourceParts[0] + ":" + sourceParts[1]
		targetID := "package:" + targetParts[0] + ":" + targetParts[1]

		result.addNode(sourceID, mavenCoordNode(sourceParts))
		result.addNode(targetID, mavenCoordNode(targetParts))
		result.addEdge(sourceID, targetID, sourceID == ProjectRoot, map[string]any{"version": targetParts[3]})

		if sourceID != ProjectRoot {
			name := targetParts[0] + ":" + targetParts[1]
			result.TransitiveDependencies[name] = Dependency{Name: name, Version: targetParts[3]}
		}
	}
}

// genericManifestDeps handles the remaining ecosystems (gradle, cargo,
// bundler, composer, nuget) with a best-effort line-oriented regex, in
// place of importing a build-file parser per ecosystem: the spec's
// PackageScanner only requires direct dependencies and a manifest
// source attribution for these, not a full manifest grammar.
var genericDepPatterns = map[Manager]*regexp.Regexp{
	ManagerGradle:   regexp.MustCompile(`(?:implementation|api|compile|testImplementation)\s*[\('"]+([\w\.\-]+):([\w\.\-]+):([\w\.\-]+)`),
	ManagerCargo:    regexp.MustCompile(`(?m)^([\w\-]+)\s*=\s*"([^"]+)"`),
	ManagerBundler:  regexp.MustCompile(`(?m)^\s*gem\s+['"]([\w\-]+)['"](?:,\s*['"]([^'"]+)['"])?`),
	ManagerComposer: regexp.MustCompile(`"([\w\-./]+)"\s*:\s*"([^"]+)"`),
	ManagerNuget:    regexp.MustCompile(`<PackageReference\s+Include="([^"]+)"\s+Version="([^"]+)"`),
}

func parseGenericManifest(manager Manager, content string) map[string]string {
	re, ok := genericDepPatterns[manager]
	if !ok {
		return nil
	}
	deps := map[string]string{}
	for _, m := range re.FindAllStringSubmatch(content, -1) {
		name := m[1]
		version := ""
		if len(m) > 2 {
			version = m[2]
		}
		if manager == ManagerGradle {
			name = m[1] + ":" + m[2]
			version = m[3]
		}
		deps[name] = version
	}
	return deps
}
