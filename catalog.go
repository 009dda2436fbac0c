package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// -----------------------------
// Catalog queries
// -----------------------------

func activeServices(ctx context.Context) ([]Service, error) {
	services := []Service{}
	err := DB.WithContext(ctx).Where("is_active = ?", true).Order("id").Find(&services).Error
	return services, err
}

func activeHalls(ctx context.Context) ([]Hall, error) {
	halls := []Hall{}
	err := DB.WithContext(ctx).Where("is_active = ?", true).Order("id").Find(&halls).Error
	return halls, err
}

func activePackages(ctx context.Context) ([]Package, error) {
	packages := []Package{}
	err := DB.WithContext(ctx).Where("is_active = ?", true).Order("id").Find(&packages).Error
	return packages, err
}

// -----------------------------
// Catalog API (public)
// -----------------------------

func GetServices(c *gin.Context) {
	services, err := activeServices(c.Request.Context())
	if err != nil {
		storeFailure(c, err, "could not load services")
		return
	}
	jsonOK(c, http.StatusOK, "", gin.H{"services": services})
}

func GetHalls(c *gin.Context) {
	halls, err := activeHalls(c.Request.Context())
	if err != nil {
		storeFailure(c, err, "could not load halls")
		return
	}
	jsonOK(c, http.StatusOK, "", gin.H{"halls": halls})
}

func GetPackages(c *gin.Context) {
	packages, err := activePackages(c.Request.Context())
	if err != nil {
		storeFailure(c, err, "could not load packages")
		return
	}
	jsonOK(c, http.StatusOK, "", gin.H{"packages": packages})
}

// -----------------------------
// Selected item lookups (session required)
// -----------------------------

func GetSelectedService(c *gin.Context) {
	var s Service
	if !findByName(c, &s, "Service") {
		return
	}
	jsonOK(c, http.StatusOK, "", gin.H{"service": gin.H{
		"id":          s.ID,
		"name":        s.Name,
		"price":       s.Price,
		"description": s.Description,
	}})
}

func GetSelectedHall(c *gin.Context) {
	var h Hall
	if !findByName(c, &h, "Hall") {
		return
	}
	jsonOK(c, http.StatusOK, "", gin.H{"hall": gin.H{
		"id":          h.ID,
		"name":        h.Name,
		"price":       h.Price,
		"location":    h.Location,
		"description": h.Description,
	}})
}

func GetSelectedPackage(c *gin.Context) {
	var p Package
	if !findByName(c, &p, "Package") {
		return
	}
	jsonOK(c, http.StatusOK, "", gin.H{"package": gin.H{
		"id":          p.ID,
		"name":        p.Name,
		"price":       p.Price,
		"description": p.Description,
		"features":    p.FeatureList(),
	}})
}

// findByName loads the active catalog row named by the :name param into dst.
func findByName(c *gin.Context, dst any, label string) bool {
	name := c.Param("name")
	err := DB.WithContext(c.Request.Context()).
		Where("name = ? AND is_active = ?", name, true).
		First(dst).Error
	if err == nil {
		return true
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		jsonFail(c, http.StatusNotFound, label+" not found")
		return false
	}
	storeFailure(c, err, "db error")
	return false
}
