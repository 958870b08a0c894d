// internal/services/autorule.go
package services

import (
	"errors"

	"mercury-erp/models"

	"gorm.io/gorm"
)

// RuleAttributes - атрибуты сопоставления правила автоаналитики.
// NULL означает "любое значение".
type RuleAttributes struct {
	PartnerTagID      *uint
	PartnerID         *uint
	ProductCategoryID *uint
	ProductID         *uint
}

// RulePriority - производный приоритет правила: число заполненных атрибутов.
// Чистая функция над полным набором атрибутов, включая не изменявшиеся при
// обновлении, иначе приоритет расходится с фактическим составом правила.
func RulePriority(attrs RuleAttributes) int {
	priority := 0
	if attrs.PartnerTagID != nil {
		priority++
	}
	if attrs.PartnerID != nil {
		priority++
	}
	if attrs.ProductCategoryID != nil {
		priority++
	}
	if attrs.ProductID != nil {
		priority++
	}
	return priority
}

// ValidateRuleAttributes отклоняет правило без единого условия. Проверка
// выполняется при записи правила, а не при чтении: правило с нулем условий
// не существует в принципе.
func ValidateRuleAttributes(attrs RuleAttributes) error {
	if RulePriority(attrs) == 0 {
		return Validationf("правило автоаналитики должно содержать хотя бы один атрибут сопоставления")
	}
	return nil
}

// MatchContext - атрибуты строки документа, по которым подбирается правило.
type MatchContext struct {
	PartnerID         *uint
	PartnerTagID      *uint
	ProductID         *uint
	ProductCategoryID *uint
}

func attrMatches(ruleAttr *uint, lineAttr *uint) bool {
	if ruleAttr == nil {
		return true // wildcard
	}
	return lineAttr != nil && *lineAttr == *ruleAttr
}

// RuleMatches проверяет, что каждый атрибут правила либо пуст, либо равен
// соответствующему атрибуту строки.
func RuleMatches(rule *models.AutoAnalyticalRule, ctx MatchContext) bool {
	return attrMatches(rule.PartnerTagID, ctx.PartnerTagID) &&
		attrMatches(rule.PartnerID, ctx.PartnerID) &&
		attrMatches(rule.ProductCategoryID, ctx.ProductCategoryID) &&
		attrMatches(rule.ProductID, ctx.ProductID)
}

// SelectRule выбирает из набора правил подходящее с максимальным приоритетом;
// при равенстве побеждает созданное позже. Результат детерминирован и не
// зависит от порядка правил на входе. Отсутствие совпадений - не ошибка,
// возвращается nil.
func SelectRule(rules []models.AutoAnalyticalRule, ctx MatchContext) *models.AutoAnalyticalRule {
	var best *models.AutoAnalyticalRule
	for i := range rules {
		rule := &rules[i]
		if !RuleMatches(rule, ctx) {
			continue
		}
		if best == nil ||
			rule.Priority > best.Priority ||
			(rule.Priority == best.Priority && rule.CreatedAt.After(best.CreatedAt)) {
			best = rule
		}
	}
	return best
}

// SuggestAnalyticAccount подбирает аналитический счет для строки документа по
// подтвержденным правилам. Атрибуты строки дорешиваются из справочников:
// метка берется у контрагента, категория - у товара. Если ни одно правило не
// совпало, возвращается nil - строка остается без аналитики, что позже
// заблокирует проводку.
func SuggestAnalyticAccount(tx *gorm.DB, partnerID *uint, productID *uint) (*uint, error) {
	ctx := MatchContext{PartnerID: partnerID, ProductID: productID}

	if partnerID != nil {
		var partner models.Partner
		if err := tx.First(&partner, *partnerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, NotFoundf("контрагент %d не найден", *partnerID)
			}
			return nil, err
		}
		ctx.PartnerTagID = partner.PartnerTagID
	}
	if productID != nil {
		var product models.Product
		if err := tx.First(&product, *productID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, NotFoundf("товар %d не найден", *productID)
			}
			return nil, err
		}
		ctx.ProductCategoryID = product.CategoryID
	}

	var rules []models.AutoAnalyticalRule
	if err := tx.Where("status = ?", models.RuleConfirmed).Find(&rules).Error; err != nil {
		return nil, err
	}

	rule := SelectRule(rules, ctx)
	if rule == nil {
		return nil, nil
	}
	return &rule.AnalyticAccountID, nil
}
