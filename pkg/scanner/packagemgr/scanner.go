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
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/flowforge/pipeline-core/internal/metrics"
	"github.com/flowforge/pipeline-core/pkg/graph"
)

// Scanner runs PackageScanner over a project tree: manager detection,
// direct-dependency parsing, and best-effort native tree-tool
// invocation for the transitive closure.
type Scanner struct {
	logger       *zap.Logger
	toolTimeout  time.Duration
	pipBreaker   *gobreaker.CircuitBreaker[[]byte]
	npmBreaker   *gobreaker.CircuitBreaker[[]byte]
	mavenBreaker *gobreaker.CircuitBreaker[[]byte]
}

func NewScanner(logger *zap.Logger) *Scanner {
	return &Scanner{
		logger:       logger,
		toolTimeout:  30 * time.Second,
		pipBreaker:   NewToolBreaker("pipdeptree", 0.5, 60*time.Second),
		npmBreaker:   NewToolBreaker("npm-list", 0.5, 60*time.Second),
		mavenBreaker: NewToolBreaker("mvn-dependency-tree", 0.5, 60*time.Second),
	}
}

// ScanProject detects every package manager present under root and
// returns one ScanResult per manager (spec §4.3).
func (s *Scanner) ScanProject(ctx context.Context, root string) ([]*ScanResult, error) {
	files, err := listFiles(root)
	if err != nil {
		return nil, err
	}

	var results []*ScanResult
	for _, manager := range Detect(files) {
		manifests := FilesOf(manager, files)
		result := newScanResult(manager)
		result.addNode(ProjectRoot, graph.NodeMeta{
			Kind:       graph.NodePackage,
			Attributes: map[string]any{"name": filepath.Base(root), "type": "project"},
		})

		switch manager {
		case ManagerPip:
			s.scanPip(ctx, root, manifests, result)
		case ManagerNpm, ManagerYarn:
			s.scanNpm(ctx, root, manifests, result)
		case ManagerMaven:
			s.scanMaven(ctx, root, manifests, result)
		case ManagerGo:
			s.scanGo(manifests, result)
		default:
			s.scanGeneric(manager, manifests, result)
		}

		metrics.ScansTotal.WithLabelValues("package:"+string(manager), "success").Inc()
		results = append(results, result)
	}
	return results, nil
}

func listFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func (s *Scanner) scanPip(ctx context.Context, root string, manifests []string, result *ScanResult) {
	for _, manifest := range manifests {
		if filepath.Base(manifest) == "setup.py" || filepath.Base(manifest) == "pyproject.toml" {
			continue // direct-dependency extraction here targets requirements*.txt, per package_analyzer.py
		}
		content, err := os.ReadFile(manifest)
		if err != nil {
			s.logger.Warn("skipping unreadable pip manifest", zap.String("path", manifest), zap.Error(err))
			continue
		}
		for name, version := range parseRequirementsTxt(string(content)) {
			s.addDirect(result, "package:"+name, name, version, graph.NodeMeta{
				Kind:       graph.NodePackage,
				Attributes: map[string]any{"name": name, "version": version, "type": "pip"},
			}, manifest, false, "")
		}
	}

	toolCtx, cancel := context.WithTimeout(ctx, s.toolTimeout)
	defer cancel()
	out, err := runTreeTool(toolCtx, s.pipBreaker, s.logger, root, "pipdeptree", "--json-tree")
	if err != nil {
		return
	}
	var tree []struct {
		Package struct {
			Key              string `json:"key"`
			InstalledVersion string `json:"installed_version"`
		} `json:"package"`
		Dependencies []struct {
			Key              string `json:"key"`
			InstalledVersion string `json:"installed_version"`
		} `json:"dependencies"`
	}
	if err := json.Unmarshal(out, &tree); err != nil {
		s.logger.Warn("malformed pipdeptree output, ignoring", zap.Error(err))
		return
	}
	result.UsedNativeTool = true
	for _, pkg := range tree {
		if pkg.Package.Key == "" {
			continue
		}
		nodeID := "package:" + pkg.Package.Key
		result.addNode(nodeID, graph.NodeMeta{
			Kind:       graph.NodePackage,
			Attributes: map[string]any{"name": pkg.Package.Key, "version": pkg.Package.InstalledVersion, "type": "pip"},
		})
		for _, dep := range pkg.Dependencies {
			if dep.Key == "" {
				continue
			}
			depID := "package:" + dep.Key
			result.addNode(depID, graph.NodeMeta{
				Kind:       graph.NodePackage,
				Attributes: map[string]any{"name": dep.Key, "version": dep.InstalledVersion, "type": "pip"},
			})
			result.addEdge(nodeID, depID, true, map[string]any{"version": dep.InstalledVersion})
			result.TransitiveDependencies[dep.Key] = Dependency{Name: dep.Key, Version: dep.InstalledVersion}
		}
	}
}

func (s *Scanner) scanNpm(ctx context.Context, root string, manifests []string, result *ScanResult) {
	for _, manifest := range manifests {
		content, err := os.ReadFile(manifest)
		if err != nil {
			s.logger.Warn("skipping unreadable npm manifest", zap.String("path", manifest), zap.Error(err))
			continue
		}
		pkg, err := parsePackageJSON(content)
		if err != nil {
			s.logger.Warn("malformed package.json, skipping", zap.String("path", manifest), zap.Error(err))
			continue
		}
		for name, version := range pkg.Dependencies {
			s.addDirect(result, "package:"+name, name, version, graph.NodeMeta{
				Kind:       graph.NodePackage,
				Attributes: map[string]any{"name": name, "version": version, "type": "npm"},
			}, manifest, false, "")
		}
		for name, version := range pkg.DevDependencies {
			s.addDirect(result, "package:"+name, name, version, graph.NodeMeta{
				Kind:       graph.NodePackage,
				Attributes: map[string]any{"name": name, "version": version, "type": "npm", "dev": true},
			}, manifest, true, "")
		}
	}

	toolCtx, cancel := context.WithTimeout(ctx, s.toolTimeout)
	defer cancel()
	out, err := runTreeTool(toolCtx, s.npmBreaker, s.logger, root, "npm", "list", "--json")
	if err != nil {
		return
	}
	var tree struct {
		Dependencies map[string]npmDepNode `json:"dependencies"`
	}
	if err := json.Unmarshal(out, &tree); err != nil {
		s.logger.Warn("malformed npm list output, ignoring", zap.Error(err))
		return
	}
	result.UsedNativeTool = true
	s.walkNpmDeps(tree.Dependencies, ProjectRoot, result)
}

type npmDepNode struct {
	Version      string                `json:"version"`
	Dependencies map[string]npmDepNode `json:"dependencies"`
}

func (s *Scanner) walkNpmDeps(deps map[string]npmDepNode, parentID string, result *ScanResult) {
	for name, info := range deps {
		nodeID := "package:" + name
		result.addNode(nodeID, graph.NodeMeta{
			Kind:       graph.NodePackage,
			Attributes: map[string]any{"name": name, "version": info.Version, "type": "npm"},
		})
		result.addEdge(parentID, nodeID, parentID == ProjectRoot, map[string]any{"version": info.Version})
		if parentID != ProjectRoot {
			result.TransitiveDependencies[name] = Dependency{Name: name, Version: info.Version}
		}
		if len(info.Dependencies) > 0 {
			s.walkNpmDeps(info.Dependencies, nodeID, result)
		}
	}
}

func (s *Scanner) scanMaven(ctx context.Context, root string, manifests []string, result *ScanResult) {
	for _, manifest := range manifests {
		content, err := os.ReadFile(manifest)
		if err != nil {
			s.logger.Warn("skipping unreadable pom.xml", zap.String("path", manifest), zap.Error(err))
			continue
		}
		for _, dep := range parsePomXML(string(content)) {
			name := dep.GroupID + ":" + dep.ArtifactID
			nodeID := "package:" + name
			attrs := map[string]any{
				"name": name, "groupId": dep.GroupID, "artifactId": dep.ArtifactID,
				"version": dep.Version, "type": "maven", "scope": dep.Scope,
			}
			s.addDirect(result, nodeID, name, dep.Version, graph.NodeMeta{Kind: graph.NodePackage, Attributes: attrs}, manifest, dep.Scope == "test", dep.Scope)
		}
	}

	toolCtx, cancel := context.WithTimeout(ctx, s.toolTimeout)
	defer cancel()
	out, err := runTreeTool(toolCtx, s.mavenBreaker, s.logger, root, "mvn", "dependency:tree", "-DoutputType=dot")
	if err != nil {
		return
	}
	result.UsedNativeTool = true
	parseMavenDotEdges(string(out), result)
}

func (s *Scanner) scanGo(manifests []string, result *ScanResult) {
	for _, manifest := range manifests {
		content, err := os.ReadFile(manifest)
		if err != nil {
			s.logger.Warn("skipping unreadable go.mod", zap.String("path", manifest), zap.Error(err))
			continue
		}
		for name, version := range parseGoMod(string(content)) {
			s.addDirect(result, "package:"+name, name, version, graph.NodeMeta{
				Kind:       graph.NodePackage,
				Attributes: map[string]any{"name": name, "version": version, "type": "go"},
			}, manifest, false, "")
		}
	}
}

func (s *Scanner) scanGeneric(manager Manager, manifests []string, result *ScanResult) {
	for _, manifest := range manifests {
		content, err := os.ReadFile(manifest)
		if err != nil {
			s.logger.Warn("skipping unreadable manifest", zap.String("path", manifest), zap.Error(err))
			continue
		}
		for name, version := range parseGenericManifest(manager, string(content)) {
			s.addDirect(result, "package:"+name, name, version, graph.NodeMeta{
				Kind:       graph.NodePackage,
				Attributes: map[string]any{"name": name, "version": version, "type": string(manager)},
			}, manifest, false, "")
		}
	}
}

func (s *Scanner) addDirect(result *ScanResult, nodeID, name, version string, meta graph.NodeMeta, source string, dev bool, scope string) {
	result.addNode(nodeID, meta)
	edgeAttrs := map[string]any{"version": version, "source": source}
	if dev {
		edgeAttrs["dev"] = true
	}
	if scope != "" {
		edgeAttrs["scope"] = scope
	}
	result.addEdge(ProjectRoot, nodeID, true, edgeAttrs)

	dep := Dependency{Name: name, Version: version, Source: source, Dev: dev, Scope: scope}
	if dev {
		result.DevDependencies[name] = dep
	}
	result.DirectDependencies[name] = dep
}
