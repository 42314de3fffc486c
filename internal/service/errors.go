package service

import "errors"

var (
	ErrCajaNoEncontrada     = errors.New("caja no encontrada")
	ErrCajaCerrada          = errors.New("la caja ya está cerrada")
	ErrCajaAbiertaExistente = errors.New("ya existe una caja abierta en este plantel")
	ErrSinCajaAbierta       = errors.New("no hay caja abierta en este plantel")
	ErrMetodoPagoInvalido   = errors.New("metodo de pago invalido")
	ErrMontoFinalRequerido  = errors.New("final_amount es requerido")
	ErrCredenciales         = errors.New("credenciales invalidas")
	ErrTokenInvalido        = errors.New("token invalido o expirado")
)
