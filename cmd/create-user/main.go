package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"syscall"

	"docflow_app_go/config"
	"docflow_app_go/db"
	"docflow_app_go/models"
	"docflow_app_go/services"
	"docflow_app_go/services/org"

	"golang.org/x/term"
)

func main() {
	issueToken := flag.Bool("token", false, "print a bearer token for the new user")
	flag.Parse()

	// Load configuration
	cfg := config.Load()

	catalog, err := org.LoadCatalogOrDefault(cfg.OrgCatalogPath)
	if err != nil {
		log.Fatalf("Failed to load organization catalog: %v", err)
	}

	// Initialize database
	if err := db.Initialize(cfg); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := db.AutoMigrate(&models.User{}); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	reader := bufio.NewReader(os.Stdin)
	prompt := func(label string) string {
		fmt.Print(label)
		value, _ := reader.ReadString('\n')
		return strings.TrimSpace(value)
	}

	// Get user details
	fmt.Println("=== Create New User ===")
	fmt.Println()
	fmt.Printf("Departments: %s\n", strings.Join(catalog.Departments(), ", "))
	fmt.Printf("Roles: %s\n", strings.Join(catalog.Roles(), ", "))
	fmt.Println()

	name := prompt("Name: ")
	email := strings.ToLower(prompt("Email: "))
	deptInput := prompt("Department: ")
	rolesInput := prompt("Roles (comma separated): ")

	// Get password securely
	fmt.Print("Password: ")
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		log.Fatalf("Failed to read password: %v", err)
	}
	password := string(passwordBytes)
	fmt.Println() // New line after password input

	// Validate inputs
	if name == "" || email == "" || password == "" {
		log.Fatal("Name, email, and password are required")
	}
	if err := services.ValidatePassword(password); err != nil {
		log.Fatalf("Weak password: %v", err)
	}

	dept, ok := catalog.CanonicalDepartment(deptInput)
	if !ok {
		log.Fatalf("Unknown department %q", deptInput)
	}
	var roles []string
	for _, raw := range strings.Split(rolesInput, ",") {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		role, ok := catalog.CanonicalRole(raw)
		if !ok {
			log.Fatalf("Unknown role %q", raw)
		}
		roles = append(roles, role)
	}
	if len(roles) == 0 {
		log.Fatal("At least one role is required")
	}

	// Check if user already exists
	var existingUser models.User
	if err := db.DB.Where("LOWER(email) = ?", email).First(&existingUser).Error; err == nil {
		log.Fatalf("User with email %s already exists", email)
	}

	// Hash password
	hashedPassword, err := services.HashPassword(password)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	user := &models.User{
		Name:         name,
		Email:        email,
		Password:     hashedPassword,
		Departamento: dept,
		Roles:        roles,
		IsActive:     true,
	}

	if err := db.DB.Create(user).Error; err != nil {
		log.Fatalf("Failed to create user: %v", err)
	}

	fmt.Println()
	fmt.Println("✓ User created successfully!")
	fmt.Printf("  ID: %s\n", user.ID)
	fmt.Printf("  Name: %s\n", user.Name)
	fmt.Printf("  Email: %s\n", user.Email)
	fmt.Printf("  Department: %s\n", user.Departamento)
	fmt.Printf("  Roles: %s\n", strings.Join(user.Roles, ", "))

	if *issueToken {
		token, err := services.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer).Issue(user, services.DefaultTokenTTL)
		if err != nil {
			log.Fatalf("Failed to issue token: %v", err)
		}
		fmt.Println()
		fmt.Printf("  Token (valid %s): %s\n", services.DefaultTokenTTL, token)
	}

	fmt.Println()
	fmt.Printf("The user can now sign in with POST %s/api/auth/login\n", cfg.AppURL)
}
