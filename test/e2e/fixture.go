package e2e

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// seedDataDir writes an index and two small content datasets under dir.
func seedDataDir(dir string) error {
	index := map[string][]string{"content": {"fixture_one", "fixture_two"}}
	if err := writeJSON(filepath.Join(dir, "index.json"), index); err != nil {
		return err
	}

	for i, name := range index["content"] {
		doc := map[string]any{
			"nodes": []map[string]any{
				{"id": 1, "label": "기쁨"},
				{"id": 2, "label": "분노"},
				{"id": 3, "label": "슬픔"},
			},
			"frames": []map[string]any{
				{"timestamp": 30 + i, "events": []map[string]any{
					{"source": "1", "target": "2", "time_diff_days": 1,
						"comment": fmt.Sprintf("fixture comment %d", i), "reply": "fixture reply"},
				}},
				{"timestamp": 20, "events": []map[string]any{
					{"source": "2", "target": "3", "time_diff_days": 2},
					{"source": "3", "target": "3", "time_diff_days": 0},
				}},
			},
		}
		if err := writeJSON(filepath.Join(dir, "content", name+".json"), doc); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
