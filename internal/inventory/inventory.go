// Package inventory turns Terraform state into an Ansible inventory.
package inventory

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// InstanceType is the Terraform resource type of ECS instances.
const InstanceType = "opentelekomcloud_compute_instance_v2"

// SSHUser is the login user of the provisioned images.
const SSHUser = "linux"

// GroupTag is the instance tag naming the inventory group.
const GroupTag = "group"

var ErrEmpty = errors.New("no instances in state")

type State struct {
	Resources []Resource `json:"resources"`
}

type Resource struct {
	Type      string     `json:"type"`
	Name      string     `json:"name"`
	Instances []Instance `json:"instances"`
}

type Instance struct {
	Attributes InstanceAttributes `json:"attributes"`
}

type InstanceAttributes struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	ImageName  string            `json:"image_name"`
	Region     string            `json:"region"`
	AccessIPv4 string            `json:"access_ip_v4"`
	Network    []Network         `json:"network"`
	Tag        map[string]string `json:"tag"`
}

type Network struct {
	FloatingIP string `json:"floating_ip"`
}

// Host holds the inventory variables of one instance.
type Host struct {
	ID             string `yaml:"id"`
	Image          string `yaml:"image"`
	Region         string `yaml:"region"`
	PublicIPv4     string `yaml:"public_ipv4"`
	AnsibleHost    string `yaml:"ansible_host"`
	AnsibleSSHUser string `yaml:"ansible_ssh_user"`
}

type Group struct {
	Hosts map[string]string `yaml:"hosts"`
}

type All struct {
	Hosts    map[string]Host  `yaml:"hosts"`
	Children map[string]Group `yaml:"children"`
}

// Inventory is the YAML inventory document.
type Inventory struct {
	All All `yaml:"all"`
}

// ReadState loads a tfstate file.
func ReadState(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parse state %s: %w", path, err)
	}
	return &st, nil
}

// Instances returns the attributes of every ECS instance in the state.
func (s *State) Instances() []InstanceAttributes {
	var out []InstanceAttributes
	for _, r := range s.Resources {
		if r.Type != InstanceType {
			continue
		}
		for _, inst := range r.Instances {
			out = append(out, inst.Attributes)
		}
	}
	return out
}

// Build groups the instances by their group tag.
func Build(instances []InstanceAttributes) Inventory {
	inv := Inventory{All: All{
		Hosts:    make(map[string]Host),
		Children: make(map[string]Group),
	}}

	for _, a := range instances {
		var floating string
		if len(a.Network) > 0 {
			floating = a.Network[0].FloatingIP
		}
		inv.All.Hosts[a.Name] = Host{
			ID:             a.ID,
			Image:          a.ImageName,
			Region:         a.Region,
			PublicIPv4:     floating,
			AnsibleHost:    a.AccessIPv4,
			AnsibleSSHUser: SSHUser,
		}

		group, ok := a.Tag[GroupTag]
		if !ok {
			continue
		}
		g, ok := inv.All.Children[group]
		if !ok {
			g = Group{Hosts: make(map[string]string)}
			inv.All.Children[group] = g
		}
		g.Hosts[a.Name] = ""
	}
	return inv
}

// HostNames returns the sorted host names.
func (inv Inventory) HostNames() []string {
	names := make([]string, 0, len(inv.All.Hosts))
	for n := range inv.All.Hosts {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Write stores the inventory as <dir>/<name>.yml and returns the path.
// An inventory without hosts is not written.
func Write(inv Inventory, dir, name string) (string, error) {
	if len(inv.All.Hosts) == 0 {
		return "", ErrEmpty
	}

	data, err := yaml.Marshal(inv)
	if err != nil {
		return "", fmt.Errorf("encode inventory: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	path := filepath.Join(dir, name+".yml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write inventory: %w", err)
	}
	return path, nil
}

// Generate reads statePath and writes the inventory named name into dir.
func Generate(statePath, dir, name string) (string, error) {
	st, err := ReadState(statePath)
	if err != nil {
		return "", err
	}
	return Write(Build(st.Instances()), dir, name)
}
