package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/deptforge/agent-departments/pkg/util/errorutil"
)

func validPersona() AgentPersonality {
	return AgentPersonality{
		Name:               "Ava",
		Role:               "Analyst",
		Expertise:          []string{"SEO"},
		Traits:             []string{"direct"},
		CommunicationStyle: "concise",
	}
}

func TestAgentPersonalityValidate(t *testing.T) {
	require.NoError(t, validPersona().Validate())

	empty := validPersona()
	empty.Expertise = nil
	empty.Traits = []string{}
	assert.NoError(t, empty.Validate(), "empty expertise and traits are allowed")
}

func TestAgentPersonalityValidateRequiredFields(t *testing.T) {
	cases := map[string]func(p *AgentPersonality){
		"name":               func(p *AgentPersonality) { p.Name = "" },
		"role":               func(p *AgentPersonality) { p.Role = "   " },
		"communicationstyle": func(p *AgentPersonality) { p.CommunicationStyle = "" },
	}
	for field, mutate := range cases {
		t.Run(field, func(t *testing.T) {
			p := validPersona()
			mutate(&p)
			err := p.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrValidation))

			de := apperrors.ToDomainError(err)
			assert.Equal(t, "VALIDATION_FAILED", de.Code)
			assert.Contains(t, de.Details, field)
		})
	}
}

func TestDepartmentCategoryValid(t *testing.T) {
	assert.True(t, CategorySales.Valid())
	assert.True(t, CategoryCustomerService.Valid())
	assert.False(t, DepartmentCategory("legal").Valid())
	assert.False(t, DepartmentCategory("").Valid())
}
