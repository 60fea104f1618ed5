package directory

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type fileDocument struct {
	Employees []Employee `yaml:"employees"`
}

// FileDirectory serves the hierarchy from a static YAML document loaded at start-up.
type FileDirectory struct {
	employees map[string]Employee
}

func LoadFile(path string) (*FileDirectory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read directory file: %w", err)
	}
	return ParseYAML(data)
}

func ParseYAML(data []byte) (*FileDirectory, error) {
	var doc fileDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse directory file: %w", err)
	}
	d := &FileDirectory{employees: make(map[string]Employee, len(doc.Employees))}
	for i, emp := range doc.Employees {
		if emp.ID == "" {
			return nil, fmt.Errorf("directory entry %d: id is required", i)
		}
		if _, dup := d.employees[emp.ID]; dup {
			return nil, fmt.Errorf("directory entry %d: duplicate id %q", i, emp.ID)
		}
		d.employees[emp.ID] = emp
	}
	return d, nil
}

func (d *FileDirectory) GetEmployee(_ context.Context, id string) (Employee, error) {
	emp, ok := d.employees[id]
	if !ok {
		return Employee{}, ErrEmployeeNotFound
	}
	return emp, nil
}

func (d *FileDirectory) GetManagerOf(ctx context.Context, employeeID string) (Employee, error) {
	return follow(ctx, d.GetEmployee, employeeID, managerLink)
}

func (d *FileDirectory) GetReviewerOf(ctx context.Context, employeeID string) (Employee, error) {
	return follow(ctx, d.GetEmployee, employeeID, reviewerLink)
}

func (d *FileDirectory) Len() int {
	return len(d.employees)
}
