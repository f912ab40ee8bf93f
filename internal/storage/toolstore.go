package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/timshannon/badgerhold/v4"

	"github.com/hongjun500/mcpd-go/internal/tool"
	"github.com/hongjun500/mcpd-go/pkg/logger"
)

var log = logger.M("STORAGE")

// ToolRecord 持久化形态的工具定义。原生工具带不可序列化的函数体，
// 不参与持久化。
type ToolRecord struct {
	Name        string `badgerhold:"key"`
	Description string
	Schema      string
	Kind        string
	Steps       []tool.Step
	Script      string
	CreatedMs   int64
}

// ToolStore badgerhold 后端的工具定义存储，按工具名为键
type ToolStore struct {
	store *badgerhold.Store
}

// OpenToolStore 打开（必要时建立）数据库目录
func OpenToolStore(path string) (*ToolStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	options := badgerhold.DefaultOptions
	options.Dir = path
	options.ValueDir = path
	options.Logger = nil // badger 缺省日志太吵，统一走 zap
	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("open tool store: %w", err)
	}
	log.Debugf("tool store open at %s", path)
	return &ToolStore{store: store}, nil
}

func (s *ToolStore) Close() error { return s.store.Close() }

// Save 覆盖写入一个定义
func (s *ToolStore) Save(def *tool.Definition) error {
	if def.Kind == tool.KindNative {
		return fmt.Errorf("native tool %s cannot be persisted", def.Name)
	}
	rec := &ToolRecord{
		Name:        def.Name,
		Description: def.Description,
		Schema:      def.Schema,
		Kind:        string(def.Kind),
		Steps:       def.Steps,
		Script:      def.Script,
		CreatedMs:   def.CreatedMs,
	}
	return s.store.Upsert(rec.Name, rec)
}

// Load 按名读取并重建定义（参数定义从 schema 还原）
func (s *ToolStore) Load(name string) (*tool.Definition, error) {
	var rec ToolRecord
	if err := s.store.Get(name, &rec); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("tool %s not persisted", name)
		}
		return nil, err
	}
	return recordToDefinition(&rec)
}

// LoadAll 读出全部持久化定义
func (s *ToolStore) LoadAll() ([]*tool.Definition, error) {
	var recs []ToolRecord
	if err := s.store.Find(&recs, nil); err != nil {
		return nil, err
	}
	out := make([]*tool.Definition, 0, len(recs))
	for i := range recs {
		def, err := recordToDefinition(&recs[i])
		if err != nil {
			log.Warnf("skip persisted tool %s: %v", recs[i].Name, err)
			continue
		}
		out = append(out, def)
	}
	return out, nil
}

// Delete 删除持久化副本；不存在不算错误
func (s *ToolStore) Delete(name string) error {
	err := s.store.Delete(name, &ToolRecord{})
	if err == badgerhold.ErrNotFound {
		return nil
	}
	return err
}

func recordToDefinition(rec *ToolRecord) (*tool.Definition, error) {
	params, err := tool.ParamsFromSchema(rec.Schema)
	if err != nil {
		return nil, err
	}
	return &tool.Definition{
		Name:        rec.Name,
		Description: rec.Description,
		Schema:      rec.Schema,
		Kind:        tool.Kind(rec.Kind),
		Params:      params,
		Steps:       rec.Steps,
		Script:      rec.Script,
		IsDynamic:   true,
		Persistent:  true,
		CreatedMs:   rec.CreatedMs,
	}, nil
}
