package services

import (
	"dost-pmns-api/apperror"
	"dost-pmns-api/models"

	"gorm.io/gorm"
)

// canViewApplication reports whether actor may read app and everything
// hanging off it (TNA, checklists, meetings).
func canViewApplication(actor *models.User, app *models.Application) bool {
	if actor == nil || app == nil {
		return false
	}
	switch actor.Role {
	case models.RoleSuperAdmin, models.RoleDOSTMimaropa:
		return true
	case models.RolePSTO:
		return isProvincialReviewer(actor, app)
	case models.RoleProponent:
		return app.ProponentID == actor.ID
	}
	return false
}

// isProvincialReviewer reports whether a psto user covers app, either as its
// assigned office or by province.
func isProvincialReviewer(actor *models.User, app *models.Application) bool {
	if actor.Role != models.RolePSTO {
		return false
	}
	if app.AssignedPSTOID != nil && *app.AssignedPSTOID == actor.ID {
		return true
	}
	return actor.ProvinceName() != "" && actor.ProvinceName() == app.Province
}

// requireProvincialReviewer returns 403 when a psto acts outside its province.
// Other roles pass through unchanged.
func requireProvincialReviewer(actor *models.User, app *models.Application) error {
	if actor.Role == models.RolePSTO && !isProvincialReviewer(actor, app) {
		return apperror.Forbidden("This application belongs to another province")
	}
	return nil
}

// scopeApplications restricts a query on applications (or a table with the
// given column prefix) to what actor may see.
func scopeApplications(q *gorm.DB, actor *models.User, prefix string) *gorm.DB {
	switch actor.Role {
	case models.RoleSuperAdmin, models.RoleDOSTMimaropa:
		return q
	case models.RolePSTO:
		return q.Where("("+prefix+"assigned_psto_id = ? OR "+prefix+"province = ?)", actor.ID, actor.ProvinceName())
	case models.RoleProponent:
		return q.Where(prefix+"proponent_id = ?", actor.ID)
	}
	return q.Where("1 = 0")
}

func loadApplication(db *gorm.DB, id uint) (*models.Application, error) {
	var app models.Application
	if err := db.First(&app, id).Error; err != nil {
		return nil, lookupErr(err, "Application")
	}
	return &app, nil
}
