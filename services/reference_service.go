package services

import (
	"errors"
	"strings"

	"dost-pmns-api/apperror"
	"dost-pmns-api/models"
	"dost-pmns-api/utils"

	"gorm.io/gorm"
)

// ProgramRequiredFields lists the application fields each program requires,
// by JSON name.
var ProgramRequiredFields = map[string][]string{
	models.ProgramSETUP: {
		"enterpriseName", "contactPerson", "position", "officeAddress", "contactNumber",
		"email", "province", "businessActivity", "enterpriseType", "yearEstablished",
	},
	models.ProgramGIA:  {"enterpriseName", "contactPerson", "contactNumber", "email", "province", "projectTitle"},
	models.ProgramCEST: {"enterpriseName", "contactPerson", "contactNumber", "email", "province", "projectTitle"},
	models.ProgramSSCP: {"enterpriseName", "contactPerson", "contactNumber", "email", "province", "projectTitle"},
}

var defaultPrograms = []models.Program{
	{Code: models.ProgramSETUP, Name: "Small Enterprise Technology Upgrading Program", Description: "Technology upgrading assistance for micro, small and medium enterprises.", IsActive: true},
	{Code: models.ProgramGIA, Name: "Grants-in-Aid Program", Description: "Grants for science and technology projects of regional relevance.", IsActive: true},
	{Code: models.ProgramCEST, Name: "Community Empowerment thru Science and Technology", Description: "Science and technology interventions for communities.", IsActive: true},
	{Code: models.ProgramSSCP, Name: "Smart and Sustainable Communities Program", Description: "Support for local government smart and sustainable community initiatives.", IsActive: true},
}

var defaultPSTOOffices = []models.PSTOOffice{
	{Province: "Marinduque", OfficeName: "PSTO Marinduque", Address: "Boac, Marinduque"},
	{Province: "Occidental Mindoro", OfficeName: "PSTO Occidental Mindoro", Address: "San Jose, Occidental Mindoro"},
	{Province: "Oriental Mindoro", OfficeName: "PSTO Oriental Mindoro", Address: "Calapan City, Oriental Mindoro"},
	{Province: "Romblon", OfficeName: "PSTO Romblon", Address: "Odiongan, Romblon"},
	{Province: "Palawan", OfficeName: "PSTO Palawan", Address: "Puerto Princesa City, Palawan"},
}

type ReferenceService struct {
	db *gorm.DB
}

func NewReferenceService(db *gorm.DB) *ReferenceService {
	return &ReferenceService{db: resolveDB(db)}
}

type ProgramInfo struct {
	models.Program
	RequiredFields []string `json:"requiredFields"`
}

func (s *ReferenceService) ListPrograms() ([]ProgramInfo, error) {
	entry, err := loadPrograms(s.db, false)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	out := make([]ProgramInfo, 0, len(entry.programs))
	for _, p := range entry.programs {
		out = append(out, ProgramInfo{Program: p, RequiredFields: ProgramRequiredFields[p.Code]})
	}
	return out, nil
}

func (s *ReferenceService) GetProgram(code string) (*ProgramInfo, error) {
	p, err := programByCode(s.db, code)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if p == nil {
		return nil, apperror.NotFound("Program")
	}
	return &ProgramInfo{Program: *p, RequiredFields: ProgramRequiredFields[p.Code]}, nil
}

func (s *ReferenceService) ListPSTOOffices() ([]models.PSTOOffice, error) {
	rows := []models.PSTOOffice{}
	if err := s.db.Preload("User").Order("province").Find(&rows).Error; err != nil {
		return nil, apperror.Internal(err)
	}
	return rows, nil
}

type PSTOOfficeInput struct {
	Province      string `json:"province" binding:"required"`
	OfficeName    string `json:"officeName" binding:"required"`
	Address       string `json:"address"`
	ContactNumber string `json:"contactNumber"`
	Email         string `json:"email"`
	HeadName      string `json:"headName"`
	UserID        *uint  `json:"userId"`
}

// SavePSTOOffice creates or updates the office of a province.
func (s *ReferenceService) SavePSTOOffice(in PSTOOfficeInput) (*models.PSTOOffice, error) {
	province := models.NormalizeProvince(in.Province)
	if province == "" {
		return nil, apperror.Validation(apperror.FieldError{Field: "province", Message: "province must be one of " + strings.Join(models.Provinces, ", ")})
	}
	if strings.TrimSpace(in.OfficeName) == "" {
		return nil, apperror.Required("officeName")
	}
	if in.Email != "" && !utils.ValidateEmail(utils.NormalizeEmail(in.Email)) {
		return nil, apperror.Validation(apperror.FieldError{Field: "email", Message: "email must be a valid email address"})
	}

	var office models.PSTOOffice
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if in.UserID != nil {
			var user models.User
			if err := tx.First(&user, *in.UserID).Error; err != nil {
				return lookupErr(err, "User")
			}
			if user.Role != models.RolePSTO || user.ProvinceName() != province {
				return apperror.BadRequest("User %d is not the psto account of %s", user.ID, province)
			}
		}

		if err := tx.Where(models.PSTOOffice{Province: province}).FirstOrInit(&office).Error; err != nil {
			return apperror.Internal(err)
		}
		office.OfficeName = utils.SanitizeInput(in.OfficeName)
		office.Address = utils.SanitizeInput(in.Address)
		office.ContactNumber = utils.SanitizeInput(in.ContactNumber)
		office.Email = utils.NormalizeEmail(in.Email)
		office.HeadName = utils.SanitizeInput(in.HeadName)
		if in.UserID != nil {
			office.UserID = in.UserID
		}
		if err := tx.Save(&office).Error; err != nil {
			return apperror.Internal(err)
		}
		return nil
	})
	if err != nil {
		return nil, apperror.From(err)
	}
	return &office, nil
}

// PSTOForProvince returns the active psto user of province, or nil.
func PSTOForProvince(db *gorm.DB, province string) (*models.User, error) {
	users, err := activeUsers(db, models.RolePSTO, province)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, nil
	}
	return &users[0], nil
}

type SeedResult struct {
	Programs int `json:"programs"`
	Offices  int `json:"offices"`
}

// Seed inserts the programs and provincial offices that are missing.
func (s *ReferenceService) Seed() (*SeedResult, error) {
	result := &SeedResult{}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, p := range defaultPrograms {
			var n int64
			if err := tx.Model(&models.Program{}).Where("code = ?", p.Code).Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				continue
			}
			row := p
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
			result.Programs++
		}
		for _, o := range defaultPSTOOffices {
			var row models.PSTOOffice
			err := tx.Where("province = ?", o.Province).First(&row).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				row = o
				err = tx.Create(&row).Error
				result.Offices++
			}
			if err != nil {
				return err
			}
			if row.UserID != nil {
				continue
			}
			psto, err := PSTOForProvince(tx, row.Province)
			if err != nil {
				return err
			}
			if psto != nil {
				if err := tx.Model(&row).Update("user_id", psto.ID).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, apperror.Internal(err)
	}
	ClearProgramCache()
	return result, nil
}
