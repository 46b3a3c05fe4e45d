package services

import "github.com/sjperalta/schoolfees-api/internal/models"

// Actor identifies who is calling a service, as read from the auth token
type Actor struct {
	Subject   string
	Role      string
	IP        string
	UserAgent string
}

// GatewayActor is used for audit entries written on behalf of the payment gateway
var GatewayActor = Actor{Subject: "gateway", Role: "system"}

// SystemActor is used for audit entries written by scheduled jobs
var SystemActor = Actor{Subject: "system", Role: "system"}

func (a Actor) IsGuardian() bool   { return a.Role == models.RoleGuardian }
func (a Actor) IsTeacher() bool    { return a.Role == models.RoleTeacher }
func (a Actor) IsProprietor() bool { return a.Role == models.RoleProprietor }
