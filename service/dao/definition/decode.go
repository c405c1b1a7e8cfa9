package definition

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/viant/signoff/internal/yml"
	"github.com/viant/signoff/model"
	"gopkg.in/yaml.v3"
)

// DecodeYAML decodes a definition document.
func DecodeYAML(encoded []byte) (*model.Definition, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(encoded, &node); err != nil {
		return nil, err
	}
	ret := &model.Definition{Version: 1}
	if err := parseDefinition((*yml.Node)(&node).Root(), ret); err != nil {
		return nil, err
	}
	ret.Init()
	return ret, nil
}

// normalize folds flowCode, flow_code and FLOWCODE onto one key.
func normalize(key string) string {
	return strings.ReplaceAll(strings.ToLower(key), "_", "")
}

func parseDefinition(node *yml.Node, definition *model.Definition) error {
	return node.Pairs(func(key string, valueNode *yml.Node) error {
		var err error
		switch normalize(key) {
		case "flowcode", "code":
			definition.FlowCode, err = valueNode.Text()
		case "businesstype":
			definition.BusinessType, err = valueNode.Text()
		case "version":
			definition.Version, err = valueNode.Int()
		case "name":
			definition.Name, err = valueNode.Text()
		case "description":
			definition.Description, err = valueNode.Text()
		case "nodes":
			err = valueNode.Items(func(index int, item *yml.Node) error {
				node, err := parseNode(item)
				if err != nil {
					return fmt.Errorf("node #%d: %w", index+1, err)
				}
				definition.Nodes = append(definition.Nodes, node)
				return nil
			})
		}
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		return nil
	})
}

func parseNode(item *yml.Node) (*model.Node, error) {
	node := &model.Node{}
	err := item.Pairs(func(key string, valueNode *yml.Node) error {
		var err error
		switch normalize(key) {
		case "order":
			node.Order, err = valueNode.Int()
		case "name":
			node.Name, err = valueNode.Text()
		case "assignee", "assigneerule":
			node.Assignee, err = valueNode.Text()
		case "when", "condition":
			node.When, err = valueNode.Text()
		case "timeout":
			node.Timeout, err = parseTimeout(valueNode)
		case "escalation", "escalationtarget", "escalationtargetrule":
			node.Escalation, err = valueNode.Text()
		case "timeoutaction", "ontimeout":
			var action string
			action, err = valueNode.Text()
			node.TimeoutAction = model.TimeoutAction(strings.ToLower(action))
		default:
			err = fmt.Errorf("unsupported attribute")
		}
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		return nil
	})
	return node, err
}

// parseTimeout accepts Go durations ("36h", "90m"), day counts ("3d") and plain seconds.
func parseTimeout(node *yml.Node) (time.Duration, error) {
	text, err := node.Text()
	if err != nil {
		return 0, err
	}
	text = strings.TrimSpace(text)
	if text == "" || text == "0" {
		return 0, nil
	}
	if seconds, err := strconv.Atoi(text); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}
	if days, ok := strings.CutSuffix(text, "d"); ok {
		count, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid timeout %q", text)
		}
		return time.Duration(count) * 24 * time.Hour, nil
	}
	return time.ParseDuration(text)
}
