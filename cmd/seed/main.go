// Command seed compiles template and vehicle authoring files into runtime
// data: YAML (or JSON) templates are validated and bundled into the API's
// JSON seed file, and vehicle fixtures are loaded into the Neo4j registry.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"gopkg.in/yaml.v3"

	"github.com/OpenBayHQ/openbay-mvp/engine/memstore"
	"github.com/OpenBayHQ/openbay-mvp/engine/registry"
	"github.com/OpenBayHQ/openbay-mvp/engine/vhc"
)

func main() {
	var (
		templatesDir = flag.String("templates", "seed/templates", "directory of template YAML/JSON files")
		vehiclesFile = flag.String("vehicles", "", "vehicle fixtures YAML file (empty skips)")
		out          = flag.String("out", "seed/vhc-seed.json", "output seed file for the API")
		neo4jURL     = flag.String("neo4j", "", "Neo4j bolt URL for vehicle loading (empty skips)")
		neo4jUser    = flag.String("neo4j-user", "neo4j", "Neo4j username")
		neo4jPass    = flag.String("neo4j-pass", "password", "Neo4j password")
	)
	flag.Parse()

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	templates, err := loadTemplates(*templatesDir)
	if err != nil {
		log.Error("load templates failed", "err", err)
		os.Exit(1)
	}
	log.Info("templates compiled", "count", len(templates), "dir", *templatesDir)

	doc := memstore.SeedDoc{Templates: templates}
	if err := writeSeed(*out, doc); err != nil {
		log.Error("write seed failed", "err", err)
		os.Exit(1)
	}
	log.Info("seed written", "file", *out)

	if *vehiclesFile == "" || *neo4jURL == "" {
		return
	}

	vehicles, err := loadVehicles(*vehiclesFile)
	if err != nil {
		log.Error("load vehicles failed", "err", err)
		os.Exit(1)
	}

	driver, err := neo4j.NewDriverWithContext(*neo4jURL, neo4j.BasicAuth(*neo4jUser, *neo4jPass, ""))
	if err != nil {
		log.Error("neo4j connect failed", "err", err)
		os.Exit(1)
	}
	defer driver.Close(ctx)

	reg := registry.New(driver)
	for _, v := range vehicles {
		if err := reg.SaveVehicle(ctx, v); err != nil {
			log.Error("save vehicle failed", "vehicle", v.ID, "err", err)
			os.Exit(1)
		}
	}
	log.Info("vehicles loaded", "count", len(vehicles))
}

// loadTemplates reads every .yaml/.yml/.json file in dir as a template,
// validates it, and fails fast on the first bad file. Exactly one template
// may be flagged active.
func loadTemplates(dir string) ([]vhc.Template, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var templates []vhc.Template
	active := ""
	for _, e := range entries {
		if e.IsDir() || !isTemplateFile(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		t, err := loadTemplate(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if t.IsActive {
			if active != "" {
				return nil, fmt.Errorf("%s: template %s is active but %s already is", path, t.ID, active)
			}
			active = t.ID
		}
		templates = append(templates, t)
	}
	if len(templates) == 0 {
		return nil, fmt.Errorf("no template files in %s", dir)
	}
	return templates, nil
}

func isTemplateFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

// loadTemplate parses one authoring file. YAML is bridged through JSON so
// the template's custom value decoding applies to both formats.
func loadTemplate(path string) (vhc.Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return vhc.Template{}, err
	}

	if ext := strings.ToLower(filepath.Ext(path)); ext == ".yaml" || ext == ".yml" {
		var raw any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return vhc.Template{}, fmt.Errorf("parse yaml: %w", err)
		}
		if data, err = json.Marshal(raw); err != nil {
			return vhc.Template{}, fmt.Errorf("bridge yaml: %w", err)
		}
	}

	var t vhc.Template
	if err := json.Unmarshal(data, &t); err != nil {
		return vhc.Template{}, fmt.Errorf("parse template: %w", err)
	}
	if err := vhc.ValidateTemplate(t); err != nil {
		return vhc.Template{}, err
	}
	if err := t.Compile(); err != nil {
		return vhc.Template{}, err
	}
	return t, nil
}

type vehicleFixtures struct {
	Vehicles []registry.Vehicle `yaml:"vehicles"`
}

func loadVehicles(path string) ([]registry.Vehicle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f vehicleFixtures
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse vehicles: %w", err)
	}
	for _, v := range f.Vehicles {
		if v.ID == "" || !vhc.ValidPowertrains[v.Powertrain] {
			return nil, fmt.Errorf("vehicle %q: missing id or bad powertrain %q", v.ID, v.Powertrain)
		}
	}
	return f.Vehicles, nil
}

func writeSeed(path string, doc memstore.SeedDoc) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
