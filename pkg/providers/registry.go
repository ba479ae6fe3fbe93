package providers

import (
	"fmt"
	"sort"
	"sync"
)

// Descriptor 提供商描述，用于列出可用提供商和校验配置
type Descriptor struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	RequiresAPIKey  bool   `json:"requires_api_key"`
	RequiresBaseURL bool   `json:"requires_base_url"`
	DefaultModel    string `json:"default_model"`
	DefaultEndpoint string `json:"default_endpoint,omitempty"`
}

// Registry 提供商注册表
type Registry struct {
	mu          sync.RWMutex
	descriptors map[string]Descriptor
}

// NewRegistry 创建新的注册表
func NewRegistry() *Registry {
	return &Registry{
		descriptors: make(map[string]Descriptor),
	}
}

// Register 注册提供商描述
func (r *Registry) Register(d Descriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.descriptors[d.Name]; exists {
		return fmt.Errorf("provider %s already registered", d.Name)
	}
	r.descriptors[d.Name] = d
	return nil
}

// Get 获取提供商描述
func (r *Registry) Get(name string) (Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, exists := r.descriptors[name]
	if !exists {
		return Descriptor{}, fmt.Errorf("provider %s not found", name)
	}
	return d, nil
}

// List 按名称列出所有提供商
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]Descriptor, 0, len(r.descriptors))
	for _, d := range r.descriptors {
		list = append(list, d)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

// Names 列出所有提供商名称
func (r *Registry) Names() []string {
	list := r.List()
	names := make([]string, len(list))
	for i, d := range list {
		names[i] = d.Name
	}
	return names
}
