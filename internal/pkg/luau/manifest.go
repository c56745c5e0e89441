package luau

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// 生成的脚本里可以内嵌一段 UI 清单，前端用它做预览渲染：
//
//	--[[NEXUSRBX_UI_MANIFEST
//	{ "version": 1, "elements": [...] }
//	]]
//
// 清单块对 Roblox 来说只是一段块注释，不影响脚本执行。

var (
	ErrNoManifest      = errors.New("no ui manifest block found")
	ErrInvalidManifest = errors.New("invalid ui manifest json")
)

var manifestRe = regexp.MustCompile(`(?s)--\[\[NEXUSRBX_UI_MANIFEST\s*(.*?)\]\]`)

// UIManifest 脚本内嵌的 UI 结构描述
type UIManifest struct {
	Version  int         `json:"version"`
	Elements []UIElement `json:"elements"`
}

// UIElement 单个 UI 元素
type UIElement struct {
	Type     string                 `json:"type"`
	Name     string                 `json:"name,omitempty"`
	Props    map[string]interface{} `json:"props,omitempty"`
	Children []UIElement            `json:"children,omitempty"`
}

// ExtractManifest 从 Luau 代码中提取 UI 清单。
// 没有清单块返回 ErrNoManifest；有块但 JSON 非法返回 ErrInvalidManifest。
func ExtractManifest(code string) (*UIManifest, error) {
	m := manifestRe.FindStringSubmatch(code)
	if m == nil {
		return nil, ErrNoManifest
	}

	raw := strings.TrimSpace(m[1])
	if raw == "" {
		return nil, ErrInvalidManifest
	}

	var manifest UIManifest
	if err := json.Unmarshal([]byte(raw), &manifest); err != nil {
		return nil, ErrInvalidManifest
	}

	return &manifest, nil
}

// ManifestJSON 提取清单并返回规整后的 JSON 字符串，没有清单返回空串
func ManifestJSON(code string) (string, error) {
	manifest, err := ExtractManifest(code)
	if err != nil {
		if errors.Is(err, ErrNoManifest) {
			return "", nil
		}
		return "", err
	}

	data, err := json.Marshal(manifest)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// StripCodeFence 去掉模型输出外层的 markdown 代码围栏
func StripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return trimmed
	}

	// 去掉首行 ```lua / ```luau 和末行 ```
	lines = lines[1:]
	if strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
