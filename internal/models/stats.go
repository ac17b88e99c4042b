package models

type DashboardStats struct {
	TotalClients     int `json:"total_clients" yaml:"total_clients"`
	ClientsActifs    int `json:"clients_actifs" yaml:"clients_actifs"`
	DocumentsGeneres int `json:"documents_generes" yaml:"documents_generes"`
	ClientsCeMois    int `json:"clients_ce_mois" yaml:"clients_ce_mois"`
}
