package repository

import (
	"github.com/doug-martin/goqu/v9"
)

type queryBuilderImpl struct {
	conditions map[string]interface{}
}

func NewQueryBuilder() QueryBuilder {
	return &queryBuilderImpl{
		conditions: make(map[string]interface{}),
	}
}

// AddCondition ignores nil values so optional filters can be passed through.
func (q *queryBuilderImpl) AddCondition(key string, value interface{}) {
	switch v := value.(type) {
	case nil:
		return
	case *int:
		if v == nil {
			return
		}
		q.conditions[key] = *v
	default:
		q.conditions[key] = value
	}
}

// BuildConditions maps filter keys to qualified column names.
func (q *queryBuilderImpl) BuildConditions(aliases map[string]string) goqu.Ex {
	conditions := goqu.Ex{}
	for key, value := range q.conditions {
		if alias, ok := aliases[key]; ok {
			conditions[alias] = value
		} else {
			conditions[key] = value
		}
	}
	return conditions
}
