package services

import (
	"testing"
	"time"

	"mercury-erp/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRulePriorityIsDerivedFromFullAttributeSet(t *testing.T) {
	assert.Equal(t, 0, RulePriority(RuleAttributes{}))
	assert.Equal(t, 1, RulePriority(RuleAttributes{PartnerID: uintPtr(1)}))
	assert.Equal(t, 2, RulePriority(RuleAttributes{PartnerID: uintPtr(1), ProductID: uintPtr(2)}))
	assert.Equal(t, 4, RulePriority(RuleAttributes{
		PartnerTagID:      uintPtr(1),
		PartnerID:         uintPtr(2),
		ProductCategoryID: uintPtr(3),
		ProductID:         uintPtr(4),
	}))
}

func TestValidateRuleAttributesRequiresAtLeastOne(t *testing.T) {
	assert.ErrorIs(t, ValidateRuleAttributes(RuleAttributes{}), ErrValidationFailed)
	assert.NoError(t, ValidateRuleAttributes(RuleAttributes{ProductCategoryID: uintPtr(9)}))
}

func TestSelectRuleHigherPriorityWinsRegardlessOfOrder(t *testing.T) {
	ctx := MatchContext{
		PartnerID:         uintPtr(1),
		PartnerTagID:      uintPtr(7),
		ProductID:         uintPtr(3),
		ProductCategoryID: uintPtr(5),
	}

	broad := models.AutoAnalyticalRule{
		PartnerID:         uintPtr(1),
		ProductCategoryID: uintPtr(5),
		AnalyticAccountID: 100,
		Priority:          2,
	}
	narrow := models.AutoAnalyticalRule{
		PartnerID:         uintPtr(1),
		ProductCategoryID: uintPtr(5),
		ProductID:         uintPtr(3),
		AnalyticAccountID: 200,
		Priority:          3,
	}

	// Порядок на входе не влияет на выбор
	picked := SelectRule([]models.AutoAnalyticalRule{broad, narrow}, ctx)
	require.NotNil(t, picked)
	assert.EqualValues(t, 200, picked.AnalyticAccountID)

	picked = SelectRule([]models.AutoAnalyticalRule{narrow, broad}, ctx)
	require.NotNil(t, picked)
	assert.EqualValues(t, 200, picked.AnalyticAccountID)
}

func TestSelectRuleTieBrokenByNewest(t *testing.T) {
	ctx := MatchContext{PartnerID: uintPtr(1)}

	older := models.AutoAnalyticalRule{PartnerID: uintPtr(1), AnalyticAccountID: 100, Priority: 1}
	older.CreatedAt = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := models.AutoAnalyticalRule{PartnerID: uintPtr(1), AnalyticAccountID: 200, Priority: 1}
	newer.CreatedAt = time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	picked := SelectRule([]models.AutoAnalyticalRule{older, newer}, ctx)
	require.NotNil(t, picked)
	assert.EqualValues(t, 200, picked.AnalyticAccountID)

	picked = SelectRule([]models.AutoAnalyticalRule{newer, older}, ctx)
	require.NotNil(t, picked)
	assert.EqualValues(t, 200, picked.AnalyticAccountID)
}

func TestSelectRuleWildcardAndMismatch(t *testing.T) {
	rule := models.AutoAnalyticalRule{ProductID: uintPtr(3), AnalyticAccountID: 50, Priority: 1}

	// Пустой атрибут правила - wildcard, несовпадающий заполненный - отказ
	assert.NotNil(t, SelectRule([]models.AutoAnalyticalRule{rule}, MatchContext{ProductID: uintPtr(3), PartnerID: uintPtr(9)}))
	assert.Nil(t, SelectRule([]models.AutoAnalyticalRule{rule}, MatchContext{ProductID: uintPtr(4)}))
	assert.Nil(t, SelectRule([]models.AutoAnalyticalRule{rule}, MatchContext{PartnerID: uintPtr(9)}))
}

func TestSuggestAnalyticAccount(t *testing.T) {
	db := setupTestDB(t)

	tag := &models.PartnerTag{Name: "Облачные сервисы"}
	require.NoError(t, db.Create(tag).Error)
	vendor := &models.Partner{Name: "ТОО Ромашка", IsVendor: true, PartnerTagID: &tag.ID}
	require.NoError(t, db.Create(vendor).Error)

	category := &models.ProductCategory{Name: "Подписки"}
	require.NoError(t, db.Create(category).Error)
	product := &models.Product{Name: "Хостинг", CategoryID: &category.ID}
	require.NoError(t, db.Create(product).Error)

	itAccount := createConfirmedAccount(t, db, "IT")
	miscAccount := createConfirmedAccount(t, db, "MISC")

	// Широкое правило по метке и узкое по метке+категории
	byTag := &models.AutoAnalyticalRule{
		PartnerTagID:      &tag.ID,
		AnalyticAccountID: miscAccount.ID,
		Priority:          1,
		Status:            models.RuleConfirmed,
	}
	require.NoError(t, db.Create(byTag).Error)
	byTagAndCategory := &models.AutoAnalyticalRule{
		PartnerTagID:      &tag.ID,
		ProductCategoryID: &category.ID,
		AnalyticAccountID: itAccount.ID,
		Priority:          2,
		Status:            models.RuleConfirmed,
	}
	require.NoError(t, db.Create(byTagAndCategory).Error)

	// Неподтвержденное правило не участвует
	draftRule := &models.AutoAnalyticalRule{
		PartnerID:         &vendor.ID,
		ProductID:         &product.ID,
		AnalyticAccountID: 999,
		Priority:          2,
		Status:            models.RuleDraft,
	}
	require.NoError(t, db.Create(draftRule).Error)

	got, err := SuggestAnalyticAccount(db, &vendor.ID, &product.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, itAccount.ID, *got)

	// Без товара срабатывает правило по метке
	got, err = SuggestAnalyticAccount(db, &vendor.ID, nil)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, miscAccount.ID, *got)

	// Ни одного совпадения - nil без ошибки
	stranger := createCustomer(t, db, "ИП Чужой")
	got, err = SuggestAnalyticAccount(db, &stranger.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}
